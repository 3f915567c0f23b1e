package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCommandsRegistered(t *testing.T) {
	names := make([]string, 0, len(rootCmd.Commands()))
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"serve", "recommend", "search", "embed", "import", "status", "version"} {
		assert.Contains(t, names, want)
	}
}

func TestEmbedRejectsUnknownScope(t *testing.T) {
	flagEmbedScope = "everything"
	defer func() { flagEmbedScope = "stale" }()

	err := runEmbed(embedCmd, nil)
	assert.Error(t, err)
}

func TestRecommendRequiresProblem(t *testing.T) {
	assert.Error(t, recommendCmd.Args(recommendCmd, nil))
	assert.NoError(t, recommendCmd.Args(recommendCmd, []string{"cache", "results"}))
}
