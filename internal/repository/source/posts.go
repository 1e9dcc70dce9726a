package source

import (
	"bytes"
	"fmt"

	"github.com/natefinch/atomic"
	"github.com/parquet-go/parquet-go"
)

// Post is one scraped marketplace listing, the row shape of the source file.
type Post struct {
	Title       *string  `json:"title"       parquet:"title"`
	Description *string  `json:"description" parquet:"description"`
	Price       *string  `json:"price"       parquet:"price"`
	Phone       *string  `json:"phone"       parquet:"phone"`
	Images      []string `json:"images"      parquet:"images,optional,list"`
	Location    *string  `json:"location"    parquet:"location"`
	Date        *string  `json:"date"        parquet:"date"`
	Channel     *string  `json:"channel"     parquet:"channel"`
	ID          int64    `json:"id"          parquet:"id"`
}

// AssignIDs numbers posts 1..N in order, replacing any ids they carry.
func AssignIDs(posts []Post) {
	for i := range posts {
		posts[i].ID = int64(i + 1)
	}
}

// EncodePosts encodes posts as a single Parquet file.
func EncodePosts(posts []Post) ([]byte, error) {
	var buf bytes.Buffer
	w := parquet.NewGenericWriter[Post](&buf)
	if _, err := w.Write(posts); err != nil {
		return nil, fmt.Errorf("write rows: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close writer: %w", err)
	}
	return buf.Bytes(), nil
}

// WritePosts encodes posts and atomically replaces the file at path.
func WritePosts(path string, posts []Post) error {
	data, err := EncodePosts(posts)
	if err != nil {
		return err
	}
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
