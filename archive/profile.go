package archive

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"gopkg.in/yaml.v3"
)

// Profile selects one archive variant: the key pair its executable uses and
// the code page of its entry names. Profiles are chosen explicitly by the
// caller; nothing is detected from the archive itself.
type Profile struct {
	Name    string
	Keys    Keys
	Charset encoding.Encoding
}

// KeyRing is a named set of profiles.
type KeyRing struct {
	profiles map[string]Profile
	names    []string
}

type keyRingFile struct {
	Profiles []struct {
		Name    string `yaml:"name"`
		Key1    string `yaml:"key1"`
		Key2    string `yaml:"key2"`
		Charset string `yaml:"charset"`
	} `yaml:"profiles"`
}

// ParseKeyRing parses a YAML key ring:
//
//	profiles:
//	  - name: retail
//	    key1: "0x12345678"
//	    key2: "0x9abcdef0"
//	    charset: windows-1251
//
// Keys accept any base understood by strconv.ParseUint with base 0.
func ParseKeyRing(data []byte) (*KeyRing, error) {
	var f keyRingFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse key ring: %w", err)
	}
	kr := &KeyRing{profiles: make(map[string]Profile, len(f.Profiles))}
	for i, p := range f.Profiles {
		if p.Name == "" {
			return nil, fmt.Errorf("key ring profile %d: missing name", i)
		}
		if _, dup := kr.profiles[p.Name]; dup {
			return nil, fmt.Errorf("key ring profile %q: duplicate name", p.Name)
		}
		k1, err := ParseKey(p.Key1)
		if err != nil {
			return nil, fmt.Errorf("key ring profile %q: key1: %w", p.Name, err)
		}
		k2, err := ParseKey(p.Key2)
		if err != nil {
			return nil, fmt.Errorf("key ring profile %q: key2: %w", p.Name, err)
		}
		cs, err := CharsetByName(p.Charset)
		if err != nil {
			return nil, fmt.Errorf("key ring profile %q: %w", p.Name, err)
		}
		kr.profiles[p.Name] = Profile{Name: p.Name, Keys: Keys{K1: k1, K2: k2}, Charset: cs}
		kr.names = append(kr.names, p.Name)
	}
	return kr, nil
}

// LoadKeyRing reads and parses a YAML key ring file.
func LoadKeyRing(path string) (*KeyRing, error) {
	data, err := os.ReadFile(path) //nolint:gosec // caller-supplied config path
	if err != nil {
		return nil, err
	}
	return ParseKeyRing(data)
}

// Profile returns the named profile.
func (k *KeyRing) Profile(name string) (Profile, bool) {
	p, ok := k.profiles[name]
	return p, ok
}

// Names returns profile names in file order.
func (k *KeyRing) Names() []string {
	return slices.Clone(k.names)
}

// ParseKey parses a 32-bit key in decimal, hex (0x), octal (0o) or binary (0b).
func ParseKey(s string) (uint32, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty key")
	}
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}

var charsetAliases = map[string]encoding.Encoding{
	"cp866":  charmap.CodePage866,
	"cp1250": charmap.Windows1250,
	"cp1251": charmap.Windows1251,
	"cp1252": charmap.Windows1252,
	"koi8r":  charmap.KOI8R,
	"latin1": charmap.ISO8859_1,
}

// CharsetByName resolves a code page name such as "windows-1251", "cp866"
// or "koi8-r". The empty string, "raw" and "none" return a nil encoding,
// which keeps names as raw bytes.
func CharsetByName(name string) (encoding.Encoding, error) {
	key := normalizeCharset(name)
	switch key {
	case "", "raw", "none":
		return nil, nil
	}
	if enc, ok := charsetAliases[key]; ok {
		return enc, nil
	}
	for _, enc := range charmap.All {
		if s, ok := enc.(fmt.Stringer); ok && normalizeCharset(s.String()) == key {
			return enc, nil
		}
	}
	return nil, fmt.Errorf("unknown charset %q", name)
}

func normalizeCharset(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '_':
			return -1
		}
		return r
	}, strings.ToLower(strings.TrimSpace(name)))
}
