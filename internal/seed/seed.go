// Package seed provides the built-in Macbeth corpus.
package seed

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ziadkadry99/macbot/internal/document"
)

//go:embed corpus.yaml
var corpusYAML []byte

// DocumentID is the id prefix of every seeded chunk.
const DocumentID = "seed"

// Entry is one passage of the corpus.
type Entry struct {
	Text      string `yaml:"text"`
	Act       string `yaml:"act"`
	Scene     string `yaml:"scene"`
	Character string `yaml:"character"`
	Theme     string `yaml:"theme"`
}

// Corpus is the parsed corpus file.
type Corpus struct {
	Source   string  `yaml:"source"`
	FileName string  `yaml:"file_name"`
	Entries  []Entry `yaml:"entries"`
}

// Load parses the embedded corpus.
func Load() (*Corpus, error) {
	return Parse(corpusYAML)
}

// Parse decodes a corpus in the embedded file's format.
func Parse(data []byte) (*Corpus, error) {
	var c Corpus
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parsing seed corpus: %w", err)
	}
	if c.FileName == "" {
		return nil, fmt.Errorf("parsing seed corpus: file_name is required")
	}
	for i, e := range c.Entries {
		if strings.TrimSpace(e.Text) == "" {
			return nil, fmt.Errorf("parsing seed corpus: entry %d has no text", i)
		}
	}
	return &c, nil
}

// Chunks turns the corpus into chunks with deterministic ids
// (seed-chunk-0, seed-chunk-1, ...), so reseeding overwrites in place.
// The act, scene, character and theme are folded into the chunk text
// where retrieval can see them.
func (c *Corpus) Chunks() []document.Chunk {
	meta := document.Meta{Title: c.Source + " (built-in)", Source: c.Source, Type: "seed"}
	chunks := make([]document.Chunk, len(c.Entries))
	for i, e := range c.Entries {
		chunks[i] = document.Chunk{
			ID:         document.ChunkID(DocumentID, i),
			DocumentID: DocumentID,
			Text:       e.render(),
			Index:      i,
			FileName:   c.FileName,
			Meta:       meta,
		}
	}
	return chunks
}

func (e Entry) render() string {
	var labels []string
	add := func(k, v string) {
		if v != "" {
			labels = append(labels, k+": "+v)
		}
	}
	add("Act", e.Act)
	add("Scene", e.Scene)
	add("Character", e.Character)
	add("Theme", e.Theme)

	text := strings.TrimSpace(e.Text)
	if len(labels) == 0 {
		return text
	}
	return text + "\n(" + strings.Join(labels, " | ") + ")"
}
