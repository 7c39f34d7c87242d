package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// PuzzleKey returns the cache key for a single puzzle payload
func (r *CacheKeyStruct) PuzzleKey(puzzleID string) string {
	return fmt.Sprintf("puzzle:%s", puzzleID)
}

// PuzzleListKey returns the cache key for the full puzzle list
func (r *CacheKeyStruct) PuzzleListKey() string {
	return "puzzle:all"
}

// StoryNonceKey returns the cache key marking a story chunk nonce as seen
func (r *CacheKeyStruct) StoryNonceKey(sessionID, nonce string) string {
	return fmt.Sprintf("story:%s:nonce:%s", sessionID, nonce)
}

var CacheKey = NewCacheKeyStruct()
