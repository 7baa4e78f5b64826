package bookshelf_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prepstack/bookshelf/pkg/bookshelf"
)

func TestCatalogClone(t *testing.T) {
	original := bookshelf.Catalog{
		"jee": {{FileName: "a.pdf", Locator: bookshelf.Locator{DirectURL: "https://store/a"}}},
	}

	clone := original.Clone()
	clone["jee"] = append(clone["jee"], bookshelf.BookRecord{FileName: "b.pdf"})
	clone["neet"] = []bookshelf.BookRecord{{FileName: "c.pdf"}}

	assert.Len(t, original["jee"], 1)
	assert.NotContains(t, original, bookshelf.Category("neet"))
}

func TestCatalogSeed(t *testing.T) {
	catalog := bookshelf.Catalog{
		"jee": {{FileName: "a.pdf"}},
	}
	catalog.Seed([]bookshelf.Category{"jee", "neet"})

	assert.Len(t, catalog["jee"], 1)
	assert.NotNil(t, catalog["neet"])
	assert.Empty(t, catalog["neet"])
}

func TestBookRecordJSON(t *testing.T) {
	record := bookshelf.BookRecord{
		FileName: "sample.pdf",
		Locator:  bookshelf.Locator{DirectURL: "https://store/x/sample.pdf"},
	}

	data, err := json.Marshal(record)
	require.NoError(t, err)

	// Covers are optional; absent ones must not appear in the snapshot.
	assert.NotContains(t, string(data), "image")

	var decoded bookshelf.BookRecord
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, record.FileName, decoded.FileName)
	assert.Equal(t, record.Locator, decoded.Locator)
}
