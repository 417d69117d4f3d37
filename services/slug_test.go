package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Hello, World!":           "hello-world",
		"  Go   Concurrency  ":    "go-concurrency",
		"Crème brûlée recipes":    "creme-brulee-recipes",
		"C++ & Go":                "c-plus-plus-and-go",
		"snake_case and-dashes":   "snake-case-and-dashes",
		"2024 Roadmap: Q1 -- Q2":  "2024-roadmap-q1-q2",
		"!!!":                     "",
		"日本語":                     "",
		"Ünïcödé Têxt":            "unicode-text",
		"trailing separators -- ": "trailing-separators",
	}
	for in, want := range cases {
		assert.Equal(t, want, Slugify(in), "input %q", in)
	}
}
