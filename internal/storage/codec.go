// Encodes documents as JSON, YAML or MessagePack, optionally compressed.

package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"
)

// Codec serializes a Document.
type Codec interface {
	Name() string
	Marshal(doc Document) ([]byte, error)
	Unmarshal(data []byte, doc *Document) error
}

// CodecFor picks a codec from the file extension. JSON is the default.
//
// A trailing .zst or .lz4 compresses the inner format, e.g. db.json.zst.
func CodecFor(path string) Codec {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".zst":
		return zstdCodec{CodecFor(strings.TrimSuffix(path, filepath.Ext(path)))}
	case ".lz4":
		return lz4Codec{CodecFor(strings.TrimSuffix(path, filepath.Ext(path)))}
	case ".yaml", ".yml":
		return yamlCodec{}
	case ".msgpack", ".mpk":
		return msgpackCodec{}
	default:
		return jsonCodec{}
	}
}

type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(doc Document) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

func (jsonCodec) Unmarshal(data []byte, doc *Document) error {
	return json.Unmarshal(data, doc)
}

type yamlCodec struct{}

func (yamlCodec) Name() string { return "yaml" }

func (yamlCodec) Marshal(doc Document) ([]byte, error) {
	return yaml.Marshal(doc)
}

func (yamlCodec) Unmarshal(data []byte, doc *Document) error {
	return yaml.Unmarshal(data, doc)
}

type msgpackCodec struct{}

func (msgpackCodec) Name() string { return "msgpack" }

func (msgpackCodec) Marshal(doc Document) ([]byte, error) {
	return msgpack.Marshal(doc)
}

func (msgpackCodec) Unmarshal(data []byte, doc *Document) error {
	return msgpack.Unmarshal(data, doc)
}

type zstdCodec struct {
	inner Codec
}

func (c zstdCodec) Name() string { return c.inner.Name() + "+zstd" }

func (c zstdCodec) Marshal(doc Document) ([]byte, error) {
	data, err := c.inner.Marshal(doc)
	if err != nil {
		return nil, err
	}
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = enc.Close() }()
	return enc.EncodeAll(data, nil), nil
}

func (c zstdCodec) Unmarshal(data []byte, doc *Document) error {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return err
	}
	defer dec.Close()
	raw, err := dec.DecodeAll(data, nil)
	if err != nil {
		return fmt.Errorf("failed to decompress: %w", err)
	}
	return c.inner.Unmarshal(raw, doc)
}

type lz4Codec struct {
	inner Codec
}

func (c lz4Codec) Name() string { return c.inner.Name() + "+lz4" }

func (c lz4Codec) Marshal(doc Document) ([]byte, error) {
	data, err := c.inner.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c lz4Codec) Unmarshal(data []byte, doc *Document) error {
	raw, err := io.ReadAll(lz4.NewReader(bytes.NewReader(data)))
	if err != nil {
		return fmt.Errorf("failed to decompress: %w", err)
	}
	return c.inner.Unmarshal(raw, doc)
}
