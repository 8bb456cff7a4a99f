// ABOUTME: Embeds documentation content into the binary using go:embed
// ABOUTME: Provides contentFS for the library to read at runtime

package docs

import "embed"

//go:embed content/guides/*.md content/examples/*.json content/reference/*.json
var contentFS embed.FS
