// Package filters undoes PDF stream filters.
//
// [Decode] dispatches on the filter name, full or abbreviated:
//
//	data, err := filters.Decode("FlateDecode", raw, filters.Params{"Predictor": 12, "Columns": 4})
//
// FlateDecode and LZWDecode honour the TIFF (2) and PNG (10-15) predictors.
// ASCIIHexDecode, ASCII85Decode and RunLengthDecode take no parameters.
// CCITTFaxDecode reads K, Columns, Rows, EncodedByteAlign and BlackIs1.
//
// Image codecs are returned as is; Crypt and unknown names fail with
// [ErrUnsupported].
package filters
