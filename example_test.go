package pdfhtml_test

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/tsawler/pdfhtml"
	"github.com/tsawler/pdfhtml/render"
)

func ExampleOpen() {
	html, warnings, err := pdfhtml.Open("document.pdf").ToHTML(context.Background())
	if err != nil {
		log.Fatal(err)
	}
	if len(warnings) > 0 {
		fmt.Fprintln(os.Stderr, pdfhtml.FormatWarnings(warnings))
	}
	fmt.Println(len(html))
}

func ExampleConverter_WriteHTML() {
	r, err := render.ByName("outline")
	if err != nil {
		log.Fatal(err)
	}
	f, err := os.Create("document.html")
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()

	_, err = pdfhtml.Open("document.pdf").
		DPI(96).
		Renderer(r).
		WriteHTML(context.Background(), f)
	if err != nil {
		log.Fatal(err)
	}
}
