package otlp

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/rf-trace-viewer/rftrace/diag"
)

// StdinPath is the path that makes ParseFile and ParseIncremental read Stdin.
const StdinPath = "-"

// Stdin is the reader used for StdinPath.
var Stdin io.Reader = os.Stdin

var (
	ErrNotFound   = errors.New("trace file not found")
	ErrPermission = errors.New("permission denied")
)

var replacementChar = []byte("�")

// Increment is the result of one ParseIncremental call.
type Increment struct {
	Spans    []Span
	Warnings diag.Warnings
	// Offset is where the next call should resume, in uncompressed bytes.
	Offset int64
}

// ParseStream reads NDJSON records until EOF. Lines that are not valid
// records are reported as warnings and skipped; only read failures are
// returned as an error.
func ParseStream(r io.Reader) ([]Span, diag.Warnings, error) {
	inc, err := parseFrom(r, 0)
	return inc.Spans, inc.Warnings, err
}

// ParseFile parses a plain or gzip-compressed (".gz") trace file, or standard
// input when path is StdinPath.
func ParseFile(path string) ([]Span, diag.Warnings, error) {
	if path == StdinPath {
		return ParseStream(Stdin)
	}

	in, err := openInput(path)
	if err != nil {
		return nil, nil, err
	}
	defer in.Close()

	inc, err := parseFrom(in, 0)
	if err != nil {
		return nil, inc.Warnings, inputError(path, err)
	}
	return inc.Spans, inc.Warnings, nil
}

// ParseIncremental parses everything from offset to the end of the file and
// returns the offset to resume from. Offsets of gzip files count uncompressed
// bytes. Standard input cannot seek: it is read from its current position and
// the returned offset is always 0.
func ParseIncremental(path string, offset int64) (Increment, error) {
	if path == StdinPath {
		inc, err := parseFrom(Stdin, 0)
		inc.Offset = 0
		return inc, err
	}

	in, err := openInput(path)
	if err != nil {
		return Increment{}, err
	}
	defer in.Close()

	if err := in.skip(offset); err != nil {
		return Increment{}, inputError(path, err)
	}
	inc, err := parseFrom(in, offset)
	if err != nil {
		return Increment{}, inputError(path, err)
	}
	return inc, nil
}

func parseFrom(r io.Reader, offset int64) (Increment, error) {
	inc := Increment{Offset: offset}
	br := bufio.NewReader(r)
	lineNum := 0
	for {
		raw, readErr := br.ReadBytes('\n')
		if len(raw) > 0 {
			lineNum++
			lineStart := inc.Offset
			inc.Offset += int64(len(raw))

			line := bytes.TrimSpace(bytes.ToValidUTF8(raw, replacementChar))
			if len(line) > 0 {
				spans, err := ParseLine(line)
				if err != nil {
					inc.Warnings.Add(diag.Warning{
						Kind:    diag.MalformedLine,
						Message: fmt.Sprintf("skipping malformed line %d: %v", lineNum, err),
						Line:    lineNum,
						Offset:  lineStart,
					})
				} else {
					inc.Spans = append(inc.Spans, spans...)
				}
			}
		}
		if readErr == io.EOF {
			return inc, nil
		}
		if readErr != nil {
			return inc, readErr
		}
	}
}

type input struct {
	io.Reader
	file *os.File
	gz   *gzip.Reader
}

func openInput(path string) (*input, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, inputError(path, err)
	}
	in := &input{Reader: f, file: f}
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			_ = f.Close()
			return nil, inputError(path, err)
		}
		in.Reader = gz
		in.gz = gz
	}
	return in, nil
}

func (in *input) skip(offset int64) error {
	if offset <= 0 {
		return nil
	}
	if in.gz == nil {
		_, err := in.file.Seek(offset, io.SeekStart)
		return err
	}
	_, err := io.CopyN(io.Discard, in.gz, offset)
	if err == io.EOF {
		return nil
	}
	return err
}

func (in *input) Close() error {
	var gzErr error
	if in.gz != nil {
		gzErr = in.gz.Close()
	}
	return errors.Join(gzErr, in.file.Close())
}

func inputError(path string, err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %s: %w", ErrNotFound, path, err)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: %s: %w", ErrPermission, path, err)
	default:
		return fmt.Errorf("read %s: %w", path, err)
	}
}
