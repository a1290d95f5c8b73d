package embed

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"sort"

	"github.com/rpgraph/rpg/internal/rpgerrors"
)

// Header is the first line of an embeddings.jsonl document.
type Header struct {
	Version string       `json:"version"`
	Config  HeaderConfig `json:"config"`
	Commit  string       `json:"commit,omitempty"`
}

// HeaderConfig describes how every vector in the file was produced.
type HeaderConfig struct {
	Provider     string `json:"provider"`
	Model        string `json:"model"`
	Dimension    int    `json:"dimension"`
	Space        string `json:"space,omitempty"`
	TextTemplate string `json:"text_template,omitempty"`
}

// Entry is one node's embedding.
type Entry struct {
	ID     string
	Vector []float32
}

type entryLine struct {
	ID     string `json:"id"`
	Vector string `json:"vector"`
}

// Document is a fully parsed embeddings.jsonl file.
type Document struct {
	Header  Header
	Entries []Entry
}

// CurrentVersion is written by Write and accepted (along with any
// "1.x.x") by Parse.
const CurrentVersion = "1.0.0"

// Write serializes a document to the JSONL layout: a header line
// followed by one entry line per node, sorted by id ascending so the
// file diffs cleanly in git.
func Write(w io.Writer, doc *Document) error {
	headerLine, err := json.Marshal(doc.Header)
	if err != nil {
		return rpgerrors.Wrap(err, rpgerrors.InvalidInput, "marshal embeddings header")
	}
	bw := bufio.NewWriter(w)
	if _, err := bw.Write(headerLine); err != nil {
		return rpgerrors.Wrap(err, rpgerrors.StoreFailure, "write embeddings header")
	}
	if err := bw.WriteByte('\n'); err != nil {
		return rpgerrors.Wrap(err, rpgerrors.StoreFailure, "write embeddings header")
	}

	entries := append([]Entry(nil), doc.Entries...)
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })

	for _, e := range entries {
		if len(e.Vector) != doc.Header.Config.Dimension {
			return rpgerrors.Newf(rpgerrors.InvalidInput,
				"entry %q has %d components, header declares dimension %d", e.ID, len(e.Vector), doc.Header.Config.Dimension)
		}
		line, err := json.Marshal(entryLine{ID: e.ID, Vector: EncodeBase64(e.Vector)})
		if err != nil {
			return rpgerrors.Wrap(err, rpgerrors.InvalidInput, "marshal embeddings entry")
		}
		if _, err := bw.Write(line); err != nil {
			return rpgerrors.Wrap(err, rpgerrors.StoreFailure, "write embeddings entry")
		}
		if err := bw.WriteByte('\n'); err != nil {
			return rpgerrors.Wrap(err, rpgerrors.StoreFailure, "write embeddings entry")
		}
	}
	return rpgerrors.Wrap(bw.Flush(), rpgerrors.StoreFailure, "flush embeddings file")
}

// Parse reads the JSONL layout described in §4.2. It fails on empty
// input, invalid JSON on any line, a version it doesn't recognize, or a
// vector whose byte length doesn't match 2*dimension.
func Parse(r io.Reader) (*Document, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)

	if !scanner.Scan() {
		return nil, rpgerrors.New(rpgerrors.InvalidInput, "empty embeddings file")
	}
	var header Header
	if err := json.Unmarshal(scanner.Bytes(), &header); err != nil {
		return nil, rpgerrors.Wrap(err, rpgerrors.InvalidInput, "invalid embeddings header")
	}
	if header.Version == "" || header.Version[0] != '1' {
		return nil, rpgerrors.Newf(rpgerrors.SchemaMismatch, "unsupported embeddings version %q", header.Version)
	}

	doc := &Document{Header: header}
	lineNo := 1
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		var el entryLine
		if err := json.Unmarshal(line, &el); err != nil {
			return nil, rpgerrors.Wrapf(err, rpgerrors.InvalidInput, "invalid embeddings entry on line %d", lineNo)
		}
		vec, err := DecodeBase64(el.Vector, header.Config.Dimension)
		if err != nil {
			return nil, rpgerrors.Wrapf(err, rpgerrors.InvalidInput, "entry %q on line %d", el.ID, lineNo)
		}
		doc.Entries = append(doc.Entries, Entry{ID: el.ID, Vector: vec})
	}
	if err := scanner.Err(); err != nil {
		return nil, rpgerrors.Wrap(err, rpgerrors.StoreFailure, "scan embeddings file")
	}
	return doc, nil
}

// legacyDocument mirrors the deprecated pretty-printed JSON form: the
// same schema as Document, but as a single JSON document rather than
// JSON-lines, with vectors still base64-encoded strings.
type legacyDocument struct {
	Version string       `json:"version"`
	Config  HeaderConfig `json:"config"`
	Commit  string       `json:"commit,omitempty"`
	Entries []entryLine  `json:"entries"`
}

// ParseLegacyJSON reads the deprecated pretty-printed single-document
// form. Only Parse is used for new writes; this exists for readers that
// still encounter old embeddings.json files.
func ParseLegacyJSON(r io.Reader) (*Document, error) {
	var legacy legacyDocument
	dec := json.NewDecoder(r)
	if err := dec.Decode(&legacy); err != nil {
		return nil, rpgerrors.Wrap(err, rpgerrors.InvalidInput, "invalid legacy embeddings document")
	}
	if legacy.Version == "" || legacy.Version[0] != '1' {
		return nil, rpgerrors.Newf(rpgerrors.SchemaMismatch, "unsupported embeddings version %q", legacy.Version)
	}
	doc := &Document{Header: Header{Version: legacy.Version, Config: legacy.Config, Commit: legacy.Commit}}
	for _, el := range legacy.Entries {
		vec, err := DecodeBase64(el.Vector, legacy.Config.Dimension)
		if err != nil {
			return nil, rpgerrors.Wrapf(err, rpgerrors.InvalidInput, "legacy entry %q", el.ID)
		}
		doc.Entries = append(doc.Entries, Entry{ID: el.ID, Vector: vec})
	}
	return doc, nil
}
