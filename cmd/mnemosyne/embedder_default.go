//go:build !onnx

package main

import (
	"log"

	"github.com/mnemosyne-bot/mnemosyne/memory"
	"github.com/mnemosyne-bot/mnemosyne/memory/embedder/mock"
)

// newEmbedder returns the deterministic hash embedder. Build with
// -tags onnx for real sentence embeddings.
func newEmbedder() (memory.Embedder, error) {
	log.Println("Using mock embedder (build with -tags onnx for real embeddings)")
	return mock.New(0), nil
}
