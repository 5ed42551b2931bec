package searchengine

import (
	"os"

	"github.com/blevesearch/bleve/v2"
)

// OpenIndex opens the bleve index at indexDir, creating it with
// BuildIndexMapping if it does not already exist.
func OpenIndex(indexDir string) (bleve.Index, error) {
	if _, err := os.Stat(indexDir); err == nil {
		return bleve.Open(indexDir)
	}

	mapping, err := BuildIndexMapping()
	if err != nil {
		return nil, err
	}
	return bleve.New(indexDir, mapping)
}
