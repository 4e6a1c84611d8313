// Package export encodes durable collections into downloadable blobs and back.
//
// Supported formats:
//   - json: pretty-printed array (default, the persisted shape)
//   - yaml: sequence of mappings
//   - toml: a single top-level table holding the array
//
// Any format can additionally be gzip-compressed.
package export

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gabriel-vasile/mimetype"
	"github.com/goccy/go-yaml"
	"github.com/klauspost/compress/gzip"
	"github.com/pelletier/go-toml/v2"
)

// Format identifies an export encoding
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// MaxImportSize caps decompressed import payloads
const MaxImportSize = 8 * 1024 * 1024

var (
	ErrUnsupportedFormat = errors.New("unsupported export format")
	ErrTooLarge          = errors.New("import payload too large")
)

// ParseFormat parses a format name; the empty string selects JSON
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatYAML, "yml":
		return FormatYAML, nil
	case FormatTOML:
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
}

// Extension returns the file extension without the dot
func (f Format) Extension() string {
	return string(f)
}

// ContentType returns the MIME type for the format
func (f Format) ContentType() string {
	switch f {
	case FormatYAML:
		return "application/yaml"
	case FormatTOML:
		return "application/toml"
	default:
		return "application/json"
	}
}

// Filename builds the download name, e.g. airwave-events-2024-05-01.json
func Filename(kind string, f Format, at time.Time, compressed bool) string {
	name := fmt.Sprintf("airwave-%s-%s.%s", kind, at.Format("2006-01-02"), f.Extension())
	if compressed {
		name += ".gz"
	}
	return name
}

// Encode serializes items in the given format.
// TOML cannot express a top-level array, so items are nested under root.
func Encode[T any](f Format, root string, items []T) ([]byte, error) {
	if items == nil {
		items = []T{}
	}

	switch f {
	case FormatJSON:
		data, err := sonic.ConfigStd.MarshalIndent(items, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode json: %w", err)
		}
		return data, nil
	case FormatYAML:
		data, err := yaml.Marshal(items)
		if err != nil {
			return nil, fmt.Errorf("encode yaml: %w", err)
		}
		return data, nil
	case FormatTOML:
		data, err := toml.Marshal(map[string][]T{root: items})
		if err != nil {
			return nil, fmt.Errorf("encode toml: %w", err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, f)
	}
}

// Decode parses items previously produced by Encode
func Decode[T any](f Format, root string, data []byte) ([]T, error) {
	var items []T

	switch f {
	case FormatJSON:
		if err := sonic.ConfigStd.Unmarshal(data, &items); err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &items); err != nil {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
	case FormatTOML:
		doc := map[string][]T{}
		if err := toml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("decode toml: %w", err)
		}
		items = doc[root]
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, f)
	}

	if items == nil {
		items = []T{}
	}
	return items, nil
}

// Compress gzips data
func Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		zw.Close()
		return nil, fmt.Errorf("gzip write: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("gzip close: %w", err)
	}
	return buf.Bytes(), nil
}

// Decompress gunzips data, refusing payloads larger than MaxImportSize
func Decompress(data []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("gzip open: %w", err)
	}
	defer zr.Close()

	out, err := io.ReadAll(io.LimitReader(zr, MaxImportSize+1))
	if err != nil {
		return nil, fmt.Errorf("gzip read: %w", err)
	}
	if len(out) > MaxImportSize {
		return nil, ErrTooLarge
	}
	return out, nil
}

// Sniff inspects an upload and returns its payload with compression removed.
// The format is taken from the content when it is recognisable as JSON or
// TOML; fallback is used otherwise. mimetype reports TOML that opens with an
// array of tables as plain text, so without a fallback such text is tried
// as TOML before it is rejected.
func Sniff(data []byte, fallback Format) ([]byte, Format, error) {
	mt := mimetype.Detect(data)
	if mt.Is("application/gzip") {
		plain, err := Decompress(data)
		if err != nil {
			return nil, "", err
		}
		data = plain
		mt = mimetype.Detect(data)
	}

	switch {
	case mt.Is("application/json"):
		return data, FormatJSON, nil
	case mt.Is("application/toml"):
		return data, FormatTOML, nil
	case fallback != "":
		return data, fallback, nil
	case mt.Is("text/plain") && isTOML(data):
		return data, FormatTOML, nil
	default:
		return nil, "", fmt.Errorf("%w: detected %s", ErrUnsupportedFormat, mt.String())
	}
}

func isTOML(data []byte) bool {
	var doc map[string]any
	return toml.Unmarshal(data, &doc) == nil && len(doc) > 0
}
