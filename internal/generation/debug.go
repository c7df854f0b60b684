package generation

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// dumpDebug writes an unparsable response and whatever was extracted from it
// to the debug directory. It returns the file path, or "" when nothing was written.
func (g *Generator) dumpDebug(kind string, chunk int, raw string, extracted []byte) string {
	if g.debugDir == "" {
		return ""
	}
	if err := os.MkdirAll(g.debugDir, 0o755); err != nil {
		g.logger.Error("failed to create debug directory",
			slog.String("dir", g.debugDir),
			slog.String("error", err.Error()))
		return ""
	}

	name := fmt.Sprintf("%s_%s_chunk%d.txt", kind, g.now().UTC().Format("20060102T150405.000000000Z"), chunk)
	path := filepath.Join(g.debugDir, name)

	var b strings.Builder
	b.WriteString("=== RAW RESPONSE ===\n")
	b.WriteString(raw)
	b.WriteString("\n\n=== EXTRACTED ===\n")
	b.Write(extracted)
	b.WriteString("\n")

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		g.logger.Error("failed to write debug dump",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return ""
	}
	return path
}
