// Package extract turns local documents into plain text for chunking.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

type handler func(data []byte) (string, error)

var handlers = map[string]handler{
	".pdf":  pdfText,
	".docx": docxText,
	".doc":  docxText,
	".txt":  plainText,
	".md":   markdownText,
	".xlsx": xlsxText,
	".xls":  legacyXLS,
	".csv":  csvText,
	".json": jsonText,
}

// Extensions lists every extension with a handler, in a stable order.
var Extensions = []string{".pdf", ".docx", ".doc", ".txt", ".md", ".xlsx", ".xls", ".csv", ".json"}

// Supported reports whether name has an extension that can be extracted.
func Supported(name string) bool {
	_, ok := handlers[strings.ToLower(filepath.Ext(name))]
	return ok
}

// File reads and extracts the file at path.
func File(path string) (string, error) {
	if !Supported(path) {
		return "", fail(path, ErrUnsupportedFormat, nil)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", &Error{Source: path, Err: err}
	}
	return Bytes(path, data)
}

// Bytes extracts text from data, choosing a handler from the extension of name.
// Failures are returned as *Error; text is never an error message.
func Bytes(name string, data []byte) (text string, err error) {
	h, ok := handlers[strings.ToLower(filepath.Ext(name))]
	if !ok {
		return "", fail(name, ErrUnsupportedFormat, nil)
	}

	// Third-party parsers can panic on malformed input.
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = &Error{Source: name, Err: ErrUnreadable}
		}
	}()

	text, err = h(data)
	if err != nil {
		return "", &Error{Source: name, Err: err}
	}
	if strings.TrimSpace(text) == "" {
		return "", fail(name, ErrEmptyContent, nil)
	}
	return text, nil
}

func plainText(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: not valid UTF-8", ErrUnreadable)
	}
	return string(data), nil
}
