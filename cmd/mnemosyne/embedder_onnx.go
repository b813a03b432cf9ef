//go:build onnx

package main

import (
	"log"
	"os"

	"github.com/mnemosyne-bot/mnemosyne/memory"
	"github.com/mnemosyne-bot/mnemosyne/memory/embedder/onnx"
)

// newEmbedder loads the ONNX sentence-embedding model from the paths
// given in the environment.
func newEmbedder() (memory.Embedder, error) {
	log.Println("Using ONNX embedder")
	return onnx.New(onnx.Config{
		ModelPath:     os.Getenv("ONNX_MODEL_PATH"),
		TokenizerPath: os.Getenv("ONNX_TOKENIZER_PATH"),
		LibraryPath:   os.Getenv("ONNX_LIBRARY_PATH"),
	})
}
