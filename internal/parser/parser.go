// Package parser defines the contract shared by data lake file parsers.
package parser

import (
	"io"

	"github.com/GabrielTheophilo/movieflix-cicd/pkg/records"
)

// Parser turns a raw file into canonical headers and records.
type Parser interface {
	Parse(r io.Reader) ([]string, []records.Record, error)
}
