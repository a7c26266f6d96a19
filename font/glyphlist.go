package font

import (
	"strconv"
	"strings"
)

// NameSource says how a glyph name was turned into text.
type NameSource int

const (
	NameUnknown NameSource = iota
	// NameListed: the name is in the glyph list.
	NameListed
	// NameParsed: the text was parsed from a uniXXXX or uXXXX[XX] name.
	NameParsed
)

// glyphList is the subset of the Adobe Glyph List covering the standard
// Latin encodings plus common typographic and mathematical symbols. Where a
// character has more than one name, the first listed is the canonical one.
var glyphList = []struct {
	name string
	r    rune
}{
	{"space", 0x0020}, {"exclam", 0x0021}, {"quotedbl", 0x0022}, {"numbersign", 0x0023},
	{"dollar", 0x0024}, {"percent", 0x0025}, {"ampersand", 0x0026}, {"quotesingle", 0x0027},
	{"parenleft", 0x0028}, {"parenright", 0x0029}, {"asterisk", 0x002A}, {"plus", 0x002B},
	{"comma", 0x002C}, {"hyphen", 0x002D}, {"period", 0x002E}, {"slash", 0x002F},
	{"zero", 0x0030}, {"one", 0x0031}, {"two", 0x0032}, {"three", 0x0033}, {"four", 0x0034},
	{"five", 0x0035}, {"six", 0x0036}, {"seven", 0x0037}, {"eight", 0x0038}, {"nine", 0x0039},
	{"colon", 0x003A}, {"semicolon", 0x003B}, {"less", 0x003C}, {"equal", 0x003D},
	{"greater", 0x003E}, {"question", 0x003F}, {"at", 0x0040},
	{"bracketleft", 0x005B}, {"backslash", 0x005C}, {"bracketright", 0x005D},
	{"asciicircum", 0x005E}, {"underscore", 0x005F}, {"grave", 0x0060},
	{"braceleft", 0x007B}, {"bar", 0x007C}, {"braceright", 0x007D}, {"asciitilde", 0x007E},

	{"nbspace", 0x00A0}, {"nonbreakingspace", 0x00A0},
	{"exclamdown", 0x00A1}, {"cent", 0x00A2}, {"sterling", 0x00A3}, {"currency", 0x00A4},
	{"yen", 0x00A5}, {"brokenbar", 0x00A6}, {"section", 0x00A7}, {"dieresis", 0x00A8},
	{"copyright", 0x00A9}, {"ordfeminine", 0x00AA}, {"guillemotleft", 0x00AB},
	{"logicalnot", 0x00AC}, {"sfthyphen", 0x00AD}, {"registered", 0x00AE}, {"macron", 0x00AF},
	{"degree", 0x00B0}, {"plusminus", 0x00B1}, {"twosuperior", 0x00B2},
	{"threesuperior", 0x00B3}, {"acute", 0x00B4}, {"mu", 0x00B5}, {"paragraph", 0x00B6},
	{"periodcentered", 0x00B7}, {"cedilla", 0x00B8}, {"onesuperior", 0x00B9},
	{"ordmasculine", 0x00BA}, {"guillemotright", 0x00BB}, {"onequarter", 0x00BC},
	{"onehalf", 0x00BD}, {"threequarters", 0x00BE}, {"questiondown", 0x00BF},
	{"Agrave", 0x00C0}, {"Aacute", 0x00C1}, {"Acircumflex", 0x00C2}, {"Atilde", 0x00C3},
	{"Adieresis", 0x00C4}, {"Aring", 0x00C5}, {"AE", 0x00C6}, {"Ccedilla", 0x00C7},
	{"Egrave", 0x00C8}, {"Eacute", 0x00C9}, {"Ecircumflex", 0x00CA}, {"Edieresis", 0x00CB},
	{"Igrave", 0x00CC}, {"Iacute", 0x00CD}, {"Icircumflex", 0x00CE}, {"Idieresis", 0x00CF},
	{"Eth", 0x00D0}, {"Ntilde", 0x00D1}, {"Ograve", 0x00D2}, {"Oacute", 0x00D3},
	{"Ocircumflex", 0x00D4}, {"Otilde", 0x00D5}, {"Odieresis", 0x00D6}, {"multiply", 0x00D7},
	{"Oslash", 0x00D8}, {"Ugrave", 0x00D9}, {"Uacute", 0x00DA}, {"Ucircumflex", 0x00DB},
	{"Udieresis", 0x00DC}, {"Yacute", 0x00DD}, {"Thorn", 0x00DE}, {"germandbls", 0x00DF},
	{"agrave", 0x00E0}, {"aacute", 0x00E1}, {"acircumflex", 0x00E2}, {"atilde", 0x00E3},
	{"adieresis", 0x00E4}, {"aring", 0x00E5}, {"ae", 0x00E6}, {"ccedilla", 0x00E7},
	{"egrave", 0x00E8}, {"eacute", 0x00E9}, {"ecircumflex", 0x00EA}, {"edieresis", 0x00EB},
	{"igrave", 0x00EC}, {"iacute", 0x00ED}, {"icircumflex", 0x00EE}, {"idieresis", 0x00EF},
	{"eth", 0x00F0}, {"ntilde", 0x00F1}, {"ograve", 0x00F2}, {"oacute", 0x00F3},
	{"ocircumflex", 0x00F4}, {"otilde", 0x00F5}, {"odieresis", 0x00F6}, {"divide", 0x00F7},
	{"oslash", 0x00F8}, {"ugrave", 0x00F9}, {"uacute", 0x00FA}, {"ucircumflex", 0x00FB},
	{"udieresis", 0x00FC}, {"yacute", 0x00FD}, {"thorn", 0x00FE}, {"ydieresis", 0x00FF},

	{"Amacron", 0x0100}, {"amacron", 0x0101}, {"Abreve", 0x0102}, {"abreve", 0x0103},
	{"Aogonek", 0x0104}, {"aogonek", 0x0105}, {"Cacute", 0x0106}, {"cacute", 0x0107},
	{"Ccaron", 0x010C}, {"ccaron", 0x010D}, {"Dcaron", 0x010E}, {"dcaron", 0x010F},
	{"Dcroat", 0x0110}, {"dcroat", 0x0111}, {"Emacron", 0x0112}, {"emacron", 0x0113},
	{"Eogonek", 0x0118}, {"eogonek", 0x0119}, {"Ecaron", 0x011A}, {"ecaron", 0x011B},
	{"Gbreve", 0x011E}, {"gbreve", 0x011F}, {"Idotaccent", 0x0130}, {"dotlessi", 0x0131},
	{"Lacute", 0x0139}, {"lacute", 0x013A}, {"Lcaron", 0x013D}, {"lcaron", 0x013E},
	{"Lslash", 0x0141}, {"lslash", 0x0142}, {"Nacute", 0x0143}, {"nacute", 0x0144},
	{"Ncaron", 0x0147}, {"ncaron", 0x0148}, {"Ohungarumlaut", 0x0150}, {"ohungarumlaut", 0x0151},
	{"OE", 0x0152}, {"oe", 0x0153}, {"Racute", 0x0154}, {"racute", 0x0155},
	{"Rcaron", 0x0158}, {"rcaron", 0x0159}, {"Sacute", 0x015A}, {"sacute", 0x015B},
	{"Scedilla", 0x015E}, {"scedilla", 0x015F}, {"Scaron", 0x0160}, {"scaron", 0x0161},
	{"Tcaron", 0x0164}, {"tcaron", 0x0165}, {"Uring", 0x016E}, {"uring", 0x016F},
	{"Uhungarumlaut", 0x0170}, {"uhungarumlaut", 0x0171}, {"Ydieresis", 0x0178},
	{"Zacute", 0x0179}, {"zacute", 0x017A}, {"Zdotaccent", 0x017B}, {"zdotaccent", 0x017C},
	{"Zcaron", 0x017D}, {"zcaron", 0x017E}, {"florin", 0x0192},

	{"circumflex", 0x02C6}, {"caron", 0x02C7}, {"breve", 0x02D8}, {"dotaccent", 0x02D9},
	{"ring", 0x02DA}, {"ogonek", 0x02DB}, {"tilde", 0x02DC}, {"hungarumlaut", 0x02DD},

	{"Alpha", 0x0391}, {"Beta", 0x0392}, {"Gamma", 0x0393}, {"Epsilon", 0x0395},
	{"Theta", 0x0398}, {"Lambda", 0x039B}, {"Pi", 0x03A0}, {"Sigma", 0x03A3}, {"Phi", 0x03A6},
	{"Psi", 0x03A8}, {"alpha", 0x03B1}, {"beta", 0x03B2}, {"gamma", 0x03B3},
	{"delta", 0x03B4}, {"epsilon", 0x03B5}, {"zeta", 0x03B6}, {"eta", 0x03B7},
	{"theta", 0x03B8}, {"iota", 0x03B9}, {"kappa", 0x03BA}, {"lambda", 0x03BB},
	{"nu", 0x03BD}, {"xi", 0x03BE}, {"omicron", 0x03BF}, {"pi", 0x03C0}, {"rho", 0x03C1},
	{"sigma", 0x03C3}, {"tau", 0x03C4}, {"upsilon", 0x03C5}, {"phi", 0x03C6},
	{"chi", 0x03C7}, {"psi", 0x03C8}, {"omega", 0x03C9},

	{"endash", 0x2013}, {"emdash", 0x2014}, {"quoteleft", 0x2018}, {"quoteright", 0x2019},
	{"quotesinglbase", 0x201A}, {"quotedblleft", 0x201C}, {"quotedblright", 0x201D},
	{"quotedblbase", 0x201E}, {"dagger", 0x2020}, {"daggerdbl", 0x2021}, {"bullet", 0x2022},
	{"onedotenleader", 0x2024}, {"twodotenleader", 0x2025}, {"ellipsis", 0x2026},
	{"perthousand", 0x2030}, {"minute", 0x2032}, {"second", 0x2033},
	{"guilsinglleft", 0x2039}, {"guilsinglright", 0x203A}, {"fraction", 0x2044},
	{"Euro", 0x20AC}, {"trademark", 0x2122}, {"Omega", 0x2126}, {"estimated", 0x212E},
	{"arrowleft", 0x2190}, {"arrowup", 0x2191}, {"arrowright", 0x2192}, {"arrowdown", 0x2193},
	{"arrowboth", 0x2194}, {"partialdiff", 0x2202}, {"Delta", 0x2206}, {"product", 0x220F},
	{"summation", 0x2211}, {"minus", 0x2212}, {"radical", 0x221A}, {"infinity", 0x221E},
	{"integral", 0x222B}, {"approxequal", 0x2248}, {"notequal", 0x2260},
	{"lessequal", 0x2264}, {"greaterequal", 0x2265}, {"lozenge", 0x25CA},
	{"filledbox", 0x25A0}, {"circle", 0x25CB}, {"checkmark", 0x2713},

	{"ff", 0xFB00}, {"fi", 0xFB01}, {"fl", 0xFB02}, {"ffi", 0xFB03}, {"ffl", 0xFB04},
}

var (
	nameToRune = map[string]rune{}
	runeToName = map[rune]string{}
)

func init() {
	for _, e := range glyphList {
		nameToRune[e.name] = e.r
		if _, ok := runeToName[e.r]; !ok {
			runeToName[e.r] = e.name
		}
	}
	for r := 'A'; r <= 'Z'; r++ {
		nameToRune[string(r)] = r
		runeToName[r] = string(r)
	}
	for r := 'a'; r <= 'z'; r++ {
		nameToRune[string(r)] = r
		runeToName[r] = string(r)
	}
}

// RuneName returns the glyph list name for r, or uniXXXX when r is not
// listed.
func RuneName(r rune) string {
	if n, ok := runeToName[r]; ok {
		return n
	}
	if r > 0xFFFF {
		return "u" + strings.ToUpper(strconv.FormatInt(int64(r), 16))
	}
	return "uni" + strings.ToUpper(pad4(strconv.FormatInt(int64(r), 16)))
}

func pad4(s string) string {
	for len(s) < 4 {
		s = "0" + s
	}
	return s
}

// LookupGlyphName turns a glyph name into text. Suffixes after a period are
// dropped and underscores join ligature components.
func LookupGlyphName(name string) (string, NameSource) {
	if i := strings.IndexByte(name, '.'); i > 0 {
		name = name[:i]
	}
	if name == "" {
		return "", NameUnknown
	}
	if strings.Contains(name, "_") {
		var sb strings.Builder
		src := NameListed
		for _, part := range strings.Split(name, "_") {
			s, ps := LookupGlyphName(part)
			if ps == NameUnknown {
				return "", NameUnknown
			}
			if ps == NameParsed {
				src = NameParsed
			}
			sb.WriteString(s)
		}
		return sb.String(), src
	}
	if r, ok := nameToRune[name]; ok {
		return string(r), NameListed
	}
	if s, ok := parseUniName(name); ok {
		return s, NameParsed
	}
	return "", NameUnknown
}

// parseUniName handles uniXXXX (one or more groups of four hex digits) and
// uXXXX to uXXXXXX.
func parseUniName(name string) (string, bool) {
	switch {
	case strings.HasPrefix(name, "uni") && len(name) >= 7 && (len(name)-3)%4 == 0:
		var sb strings.Builder
		for i := 3; i < len(name); i += 4 {
			v, err := strconv.ParseUint(name[i:i+4], 16, 32)
			if err != nil || !validScalar(rune(v)) {
				return "", false
			}
			sb.WriteRune(rune(v))
		}
		return sb.String(), true
	case strings.HasPrefix(name, "u") && len(name) >= 5 && len(name) <= 7:
		v, err := strconv.ParseUint(name[1:], 16, 32)
		if err != nil || !validScalar(rune(v)) {
			return "", false
		}
		return string(rune(v)), true
	}
	return "", false
}

func validScalar(r rune) bool {
	return r >= 0 && r <= 0x10FFFF && (r < 0xD800 || r > 0xDFFF)
}

func glyphNameText(name string) (string, bool) {
	s, src := LookupGlyphName(name)
	return s, src != NameUnknown
}
