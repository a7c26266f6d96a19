package diag

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/tsawler/pdfhtml/model"
)

func TestFromError(t *testing.T) {
	f := model.FontRef{Number: 7}
	tests := []struct {
		name     string
		page     int
		err      error
		severity Severity
		kind     Kind
		wantPage int
		font     model.FontRef
	}{
		{"render", 0, &RenderError{Page: 3, Err: errors.New("boom")}, PageFailed, KindRender, 3, model.FontRef{}},
		{"wrapped render", 2, fmt.Errorf("page: %w", &RenderError{Page: 2, Err: ErrNoRenderer}), PageFailed, KindRender, 2, model.FontRef{}},
		{"extraction", 0, &FontExtractionError{Font: f, Err: errors.New("bad glyf")}, Degraded, KindExtraction, 0, f},
		{"subset", 0, &FontSubsetError{Font: f, Missing: []model.GID{4}, Err: ErrMissingOutline}, Degraded, KindSubset, 0, f},
		{"conversion", 0, &FontConversionError{Font: f, Format: "woff2", Err: ErrToolUnavailable}, Degraded, KindConversion, 0, f},
		{"tounicode", 0, &ToUnicodeResolutionFailure{Font: f, Count: 3}, Degraded, KindToUnicode, 0, f},
		{"cancelled", 4, context.Canceled, PageFailed, KindCancelled, 4, model.FontRef{}},
		{"deadline", 4, fmt.Errorf("compose: %w", context.DeadlineExceeded), PageFailed, KindCancelled, 4, model.FontRef{}},
		{"other", 1, errors.New("odd"), Degraded, KindOther, 1, model.FontRef{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := FromError(tt.page, tt.err)
			if d.Severity != tt.severity || d.Kind != tt.kind || d.Page != tt.wantPage || d.Font != tt.font {
				t.Errorf("FromError() = %+v", d)
			}
			if d.Err != tt.err || d.Message != tt.err.Error() {
				t.Errorf("FromError() lost the error: %+v", d)
			}
		})
	}
}

func TestErrorsUnwrap(t *testing.T) {
	load := &DocumentLoadError{Path: "x.pdf", Err: ErrEncrypted}
	if !errors.Is(load, ErrEncrypted) {
		t.Error("DocumentLoadError does not unwrap to ErrEncrypted")
	}
	subset := fmt.Errorf("font: %w", &FontSubsetError{Err: ErrMissingOutline})
	if !errors.Is(subset, ErrMissingOutline) {
		t.Error("FontSubsetError does not unwrap")
	}
	var se *FontSubsetError
	if !errors.As(subset, &se) {
		t.Error("errors.As failed for FontSubsetError")
	}
}

func TestCollectorSorted(t *testing.T) {
	var c Collector
	var wg sync.WaitGroup
	for p := 5; p >= 1; p-- {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			c.Add(Diagnostic{Page: p, Kind: KindRender, Message: "b"})
			c.Add(Diagnostic{Page: p, Kind: KindErasure, Message: "a"})
		}(p)
	}
	wg.Wait()
	c.AddError(0, nil)
	c.Add(Diagnostic{Kind: KindSubset, Font: model.FontRef{Number: 9}})
	c.Add(Diagnostic{Kind: KindSubset, Font: model.FontRef{Number: 2}})

	got := c.Sorted()
	if len(got) != 12 || c.Len() != 12 {
		t.Fatalf("got %d diagnostics, want 12", len(got))
	}
	if got[0].Font.Number != 2 || got[1].Font.Number != 9 {
		t.Errorf("document-wide entries not ordered by font: %v, %v", got[0], got[1])
	}
	for i := 2; i < len(got); i += 2 {
		page := (i-2)/2 + 1
		if got[i].Page != page || got[i].Kind != KindErasure || got[i+1].Kind != KindRender {
			t.Errorf("entries %d,%d = %v, %v", i, i+1, got[i], got[i+1])
		}
	}
}

func TestDiagnosticString(t *testing.T) {
	d := Diagnostic{Severity: Degraded, Kind: KindSubset, Page: 2, Font: model.FontRef{Number: 4}, Message: "2 glyphs missing"}
	want := "[degraded] font-subset: page 2 font 4 0 R: 2 glyphs missing"
	if got := d.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	if got := (Diagnostic{Severity: Info, Kind: KindOther, Message: "m"}).String(); got != "[info] other: document: m" {
		t.Errorf("String() = %q", got)
	}
}
