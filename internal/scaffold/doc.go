// Package scaffold creates new projects and manages entry template overrides.
package scaffold
