package main

import (
	"fmt"
	"io"
	"strings"
)

// display writes data as rows of 16 hex bytes, split into two groups of
// eight, each row followed by its printable ASCII.
func display(w io.Writer, base uint32, data []byte) {
	var text strings.Builder
	for i, b := range data {
		if i%16 == 0 {
			if text.Len() > 0 {
				fmt.Fprintf(w, " %s\n", text.String())
			}
			text.Reset()
			fmt.Fprintf(w, "%06X: ", base+uint32(i))
		} else if i%8 == 0 {
			fmt.Fprint(w, " ")
		}
		fmt.Fprintf(w, "%02X", b)

		if b >= 0x20 && b < 0x7F {
			text.WriteByte(b)
		} else {
			text.WriteByte('.')
		}
	}
	fmt.Fprintf(w, " %s\n", text.String())
}
