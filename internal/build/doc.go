// Package build runs the site build: dependency installation, workspace
// reset, entry discovery and generation, server and client bundling, SSG
// rendering, output reconciliation, HTML generation, metadata injection and
// static asset layering.
//
// All state that must not outlive a build generation (discovered entries,
// the component map, materialized fallbacks, collected content errors) lives
// on a Workspace and is invalidated together.
package build
