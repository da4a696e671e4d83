package naming

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Kind is the type of database object being named.
type Kind int

const (
	KindIndex Kind = iota
	KindForeignKey
	// KindObject covers user supplied sequence and trigger names.
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindIndex:
		return "index"
	case KindForeignKey:
		return "foreign key"
	case KindObject:
		return "object"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// marker prefixes hash-derived identifiers.
func (k Kind) marker() string {
	if k == KindIndex {
		return "i"
	}
	return "c"
}

// Fold is the case normalisation applied to every returned identifier.
type Fold int

const (
	// FoldDefault defers to the dialect's convention. A Namer built with it
	// leaves names unchanged.
	FoldDefault Fold = iota
	FoldNone
	FoldUpper
	FoldLower
)

// ParseFold accepts "none", "upper" or "lower". Empty means FoldDefault.
func ParseFold(s string) (Fold, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return FoldDefault, nil
	case "none", "preserve":
		return FoldNone, nil
	case "upper":
		return FoldUpper, nil
	case "lower":
		return FoldLower, nil
	}
	return FoldNone, fmt.Errorf("naming: unknown fold %q", s)
}

const (
	// OracleMaxLength is the identifier limit of Oracle releases before 12.2.
	OracleMaxLength = 30

	defaultAbbreviateWidth = 3
)

// Config holds the per-dialect naming rules. The zero value is completed by
// New with Oracle defaults.
type Config struct {
	MaxLength       int
	HashLength      int
	AbbreviateWidth int
	Fold            Fold
	// HashFallback enables the digest token per kind. Kinds absent from the
	// map use DefaultHashFallback.
	HashFallback map[Kind]bool
}

// DefaultHashFallback hashes over-long foreign key names but never index
// names, which fail instead.
var DefaultHashFallback = map[Kind]bool{
	KindIndex:      false,
	KindForeignKey: true,
}

// DefaultConfig returns the Oracle rules.
func DefaultConfig() Config {
	return Config{MaxLength: OracleMaxLength}
}

func (c Config) withDefaults() Config {
	if c.MaxLength <= 0 {
		c.MaxLength = OracleMaxLength
	}
	if c.HashLength <= 0 || c.HashLength > c.MaxLength-1 {
		c.HashLength = c.MaxLength - 1
	}
	if c.HashLength > sha1.Size*2 {
		c.HashLength = sha1.Size * 2
	}
	if c.AbbreviateWidth <= 0 {
		c.AbbreviateWidth = defaultAbbreviateWidth
	}
	policy := make(map[Kind]bool, len(DefaultHashFallback))
	for k, v := range DefaultHashFallback {
		policy[k] = v
	}
	for k, v := range c.HashFallback {
		policy[k] = v
	}
	c.HashFallback = policy
	return c
}

// Request describes the object that needs a name.
type Request struct {
	Kind    Kind
	Table   string
	Columns []string
	// Name is an explicit name chosen by the caller.
	Name string
}

// Namer generates identifiers. It holds no mutable state.
type Namer struct {
	cfg Config
}

// New returns a Namer for cfg.
func New(cfg Config) *Namer {
	return &Namer{cfg: cfg.withDefaults()}
}

// Config returns the effective configuration.
func (n *Namer) Config() Config {
	return n.cfg
}

// MaxLength is the identifier length limit.
func (n *Namer) MaxLength() int {
	return n.cfg.MaxLength
}

// Generate returns the identifier for req.
func (n *Namer) Generate(req Request) (string, error) {
	if err := n.validateRequest(req); err != nil {
		return "", err
	}

	if req.Name != "" {
		return n.shorten(req.Kind, req.Name)
	}

	switch req.Kind {
	case KindIndex:
		return n.indexName(req)
	case KindForeignKey:
		return n.shorten(req.Kind, foreignKeyCandidate(req.Table, req.Columns))
	default:
		return "", fmt.Errorf("%w: unknown kind %s", ErrInvalidRequest, req.Kind)
	}
}

// Candidate returns the name Generate starts from, before any shortening or
// case folding.
func (n *Namer) Candidate(req Request) string {
	if req.Name != "" {
		return req.Name
	}
	if req.Kind == KindIndex {
		return indexCandidate(req.Table, req.Columns)
	}
	return foreignKeyCandidate(req.Table, req.Columns)
}

// IndexName names an index on table over columns.
func (n *Namer) IndexName(table string, columns ...string) (string, error) {
	return n.Generate(Request{Kind: KindIndex, Table: table, Columns: columns})
}

// ForeignKeyName names a foreign key constraint on table.column. A non-empty
// explicit name takes precedence over the derived one.
func (n *Namer) ForeignKeyName(table, column, explicit string) (string, error) {
	req := Request{Kind: KindForeignKey, Table: table, Name: explicit}
	if column != "" {
		req.Columns = []string{column}
	}
	return n.Generate(req)
}

// SequenceName is the default name of the sequence feeding table's primary key.
func (n *Namer) SequenceName(table string) string {
	return n.fold(clip(table, n.cfg.MaxLength-4) + "_seq")
}

// TriggerName is the default name of the trigger populating table's primary key.
func (n *Namer) TriggerName(table string) string {
	return n.fold(clip(table, n.cfg.MaxLength-4) + "_pkt")
}

// Normalize applies the configured case folding to a caller supplied name.
func (n *Namer) Normalize(name string) string {
	return n.fold(name)
}

// Validate checks that name is a legal identifier within the length limit.
func (n *Namer) Validate(name string) error {
	if err := validateIdentifier(name); err != nil {
		return err
	}
	if utf8.RuneCountInString(name) > n.cfg.MaxLength {
		return &NameTooLongError{Kind: KindObject, Name: name, Max: n.cfg.MaxLength}
	}
	return nil
}

func (n *Namer) indexName(req Request) (string, error) {
	candidate := indexCandidate(req.Table, req.Columns)
	if n.fits(candidate) {
		return n.fold(candidate), nil
	}

	stripped := strippedIndexName(req.Table, req.Columns)
	if n.fits(stripped) {
		return n.fold(stripped), nil
	}

	abbreviated := abbreviate(stripped, n.cfg.AbbreviateWidth)
	if n.fits(abbreviated) {
		return n.fold(abbreviated), nil
	}

	return n.hashOrFail(req.Kind, candidate)
}

// shorten is used for explicit names and foreign key names, which have no
// filler keywords to drop.
func (n *Namer) shorten(kind Kind, name string) (string, error) {
	if n.fits(name) {
		return n.fold(name), nil
	}
	abbreviated := abbreviate(name, n.cfg.AbbreviateWidth)
	if n.fits(abbreviated) {
		return n.fold(abbreviated), nil
	}
	return n.hashOrFail(kind, name)
}

func (n *Namer) hashOrFail(kind Kind, original string) (string, error) {
	if !n.cfg.HashFallback[kind] {
		return "", &NameTooLongError{Kind: kind, Name: original, Max: n.cfg.MaxLength}
	}
	sum := sha1.Sum([]byte(original))
	digest := strings.ToUpper(hex.EncodeToString(sum[:]))[:n.cfg.HashLength]
	return n.fold(kind.marker() + digest), nil
}

func (n *Namer) fits(name string) bool {
	return utf8.RuneCountInString(name) <= n.cfg.MaxLength
}

func (n *Namer) fold(name string) string {
	switch n.cfg.Fold {
	case FoldUpper:
		return cases.Upper(language.Und).String(name)
	case FoldLower:
		return cases.Lower(language.Und).String(name)
	default:
		return name
	}
}

func (n *Namer) validateRequest(req Request) error {
	if req.Name == "" {
		if req.Table == "" {
			return fmt.Errorf("%w: table is required", ErrInvalidRequest)
		}
		if len(req.Columns) == 0 {
			return fmt.Errorf("%w: %s on %s needs columns or an explicit name", ErrInvalidRequest, req.Kind, req.Table)
		}
	}
	if req.Table != "" {
		if err := validateIdentifier(req.Table); err != nil {
			return err
		}
	}
	for _, c := range req.Columns {
		if err := validateIdentifier(c); err != nil {
			return err
		}
	}
	if req.Name != "" {
		return validateIdentifier(req.Name)
	}
	return nil
}

func indexCandidate(table string, columns []string) string {
	return "index_" + table + "_on_" + strings.Join(columns, "_and_")
}

func strippedIndexName(table string, columns []string) string {
	return "i_" + table + "_" + strings.Join(columns, "_")
}

func foreignKeyCandidate(table string, columns []string) string {
	return table + "_" + strings.Join(columns, "_") + "_fk"
}

// abbreviate keeps the first width characters of every '_' separated word.
func abbreviate(name string, width int) string {
	words := strings.Split(name, "_")
	for i, w := range words {
		words[i] = clip(w, width)
	}
	return strings.Join(words, "_")
}

func clip(s string, width int) string {
	if width < 0 {
		width = 0
	}
	if utf8.RuneCountInString(s) <= width {
		return s
	}
	return string([]rune(s)[:width])
}
