// Package config loads lfmerge settings from a CUE file and resolves the
// Language Forge server folder layout.
package config
