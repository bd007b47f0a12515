package password

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// Blacklist es un set inmutable de passwords prohibidos (top-N filtrados),
// cargado al arranque desde un archivo de texto, una entrada por línea.
// Lookups case-insensitive.
type Blacklist struct {
	entries map[string]struct{}
}

// LoadBlacklist lee el archivo; líneas vacías y comentarios (#) se ignoran.
// Path vacío produce una blacklist vacía sin error.
func LoadBlacklist(path string) (*Blacklist, error) {
	bl := &Blacklist{entries: make(map[string]struct{})}
	path = strings.TrimSpace(path)
	if path == "" {
		return bl, nil
	}
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.ToLower(strings.TrimSpace(sc.Text()))
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		bl.entries[line] = struct{}{}
	}
	return bl, sc.Err()
}

// Contains reporta si el password está prohibido. Nil-safe.
func (b *Blacklist) Contains(pwd string) bool {
	if b == nil || len(b.entries) == 0 {
		return false
	}
	_, ok := b.entries[strings.ToLower(strings.TrimSpace(pwd))]
	return ok
}
