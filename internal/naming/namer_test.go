package naming

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sha1Token(marker, s string, n int) string {
	sum := sha1.Sum([]byte(s))
	return marker + strings.ToUpper(hex.EncodeToString(sum[:]))[:n]
}

func TestIndexName(t *testing.T) {
	n := New(DefaultConfig())

	tests := []struct {
		name     string
		table    string
		columns  []string
		expected string
	}{
		{"default name fits", "employees", []string{"first_name"}, "index_employees_on_first_name"},
		{"keywords removed", "employees", []string{"first_name", "email"}, "i_employees_first_name_email"},
		{"words abbreviated", "employees", []string{"first_name", "last_name"}, "i_emp_fir_nam_las_nam"},
		{"short table many columns", "t", []string{"a", "b", "c"}, "index_t_on_a_and_b_and_c"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := n.IndexName(tt.table, tt.columns...)
			require.NoError(t, err)
			require.Equal(t, tt.expected, got)
			require.LessOrEqual(t, len(got), OracleMaxLength)
		})
	}
}

func TestIndexNameTooLong(t *testing.T) {
	n := New(DefaultConfig())

	_, err := n.IndexName("test_employees", "first_name", "middle_name", "last_name")
	require.Error(t, err)

	var tooLong *NameTooLongError
	require.True(t, errors.As(err, &tooLong))
	assert.Equal(t, KindIndex, tooLong.Kind)
	assert.Equal(t, OracleMaxLength, tooLong.Max)
	assert.Equal(t, "index_test_employees_on_first_name_and_middle_name_and_last_name", tooLong.Name)
}

func TestIndexNameHashFallbackWhenEnabled(t *testing.T) {
	n := New(Config{HashFallback: map[Kind]bool{KindIndex: true}})

	got, err := n.IndexName("test_employees", "first_name", "middle_name", "last_name")
	require.NoError(t, err)
	require.Equal(t, sha1Token("i", "index_test_employees_on_first_name_and_middle_name_and_last_name", 29), got)
	require.Len(t, got, OracleMaxLength)
}

func TestForeignKeyName(t *testing.T) {
	n := New(Config{Fold: FoldUpper})

	longest := "long_prefix_test_comments_test_post_id_foreign_key"

	tests := []struct {
		name     string
		table    string
		column   string
		explicit string
		expected string
	}{
		{"derived from column", "test_comments", "test_post_id", "", "TEST_COMMENTS_TEST_POST_ID_FK"},
		{"derived from other column", "test_comments", "post_id", "", "TEST_COMMENTS_POST_ID_FK"},
		{"explicit short name", "test_comments", "test_post_id", "comments_posts_fk", "COMMENTS_POSTS_FK"},
		{"explicit long name abbreviated", "test_comments", "test_post_id", "test_comments_test_post_id_foreign_key", "TES_COM_TES_POS_ID_FOR_KEY"},
		{"explicit very long name hashed", "test_comments", "test_post_id", longest, sha1Token("C", longest, 29)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := n.ForeignKeyName(tt.table, tt.column, tt.explicit)
			require.NoError(t, err)
			require.Equal(t, tt.expected, got)
			require.LessOrEqual(t, len(got), OracleMaxLength)
		})
	}
}

func TestForeignKeyHashIsStable(t *testing.T) {
	name := "long_prefix_test_comments_test_post_id_foreign_key"

	first, err := New(DefaultConfig()).ForeignKeyName("test_comments", "", name)
	require.NoError(t, err)
	second, err := New(DefaultConfig()).ForeignKeyName("other_table", "", name)
	require.NoError(t, err)

	require.Equal(t, first, second)
	// digest is upper case hex behind a lower case marker without folding
	require.Equal(t, sha1Token("c", name, 29), first)
	// fixed across releases: sha1 of the name, first 29 hex characters
	sum := sha1.Sum([]byte(name))
	require.True(t, strings.HasPrefix(strings.ToUpper(hex.EncodeToString(sum[:])), first[1:]))
}

func TestForeignKeyHashFallbackDisabled(t *testing.T) {
	n := New(Config{HashFallback: map[Kind]bool{KindForeignKey: false}})

	_, err := n.ForeignKeyName("test_comments", "", "long_prefix_test_comments_test_post_id_foreign_key")
	var tooLong *NameTooLongError
	require.ErrorAs(t, err, &tooLong)
	require.Equal(t, KindForeignKey, tooLong.Kind)
}

func TestExplicitIndexName(t *testing.T) {
	n := New(DefaultConfig())

	got, err := n.Generate(Request{Kind: KindIndex, Table: "employees", Name: "emp_names_idx"})
	require.NoError(t, err)
	require.Equal(t, "emp_names_idx", got)

	_, err = n.Generate(Request{Kind: KindIndex, Table: "employees", Name: "long_prefix_employees_first_name_last_name_idx"})
	var tooLong *NameTooLongError
	require.ErrorAs(t, err, &tooLong)
}

func TestGenerateIsIdempotent(t *testing.T) {
	n := New(Config{Fold: FoldUpper})
	reqs := []Request{
		{Kind: KindIndex, Table: "employees", Columns: []string{"first_name", "last_name"}},
		{Kind: KindForeignKey, Table: "test_comments", Columns: []string{"test_post_id"}},
		{Kind: KindForeignKey, Table: "test_comments", Name: "long_prefix_test_comments_test_post_id_foreign_key"},
	}

	for _, req := range reqs {
		first, err := n.Generate(req)
		require.NoError(t, err)
		second, err := n.Generate(req)
		require.NoError(t, err)
		require.Equal(t, first, second)
	}
}

func TestGenerateConcurrent(t *testing.T) {
	n := New(DefaultConfig())
	want, err := n.IndexName("employees", "first_name", "last_name")
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]string, 64)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = n.IndexName("employees", "first_name", "last_name")
		}(i)
	}
	wg.Wait()

	for _, got := range results {
		require.Equal(t, want, got)
	}
}

func TestGenerateRejectsIllegalCharacters(t *testing.T) {
	n := New(DefaultConfig())

	tests := []struct {
		name string
		req  Request
		char rune
	}{
		{"space in column", Request{Kind: KindIndex, Table: "employees", Columns: []string{"first name"}}, ' '},
		{"dash in table", Request{Kind: KindForeignKey, Table: "test-comments", Columns: []string{"post_id"}}, '-'},
		{"leading digit in explicit name", Request{Kind: KindForeignKey, Table: "t", Name: "1_fk"}, '1'},
		{"quote in table", Request{Kind: KindIndex, Table: `emp"`, Columns: []string{"id"}}, '"'},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := n.Generate(tt.req)
			var invalid *InvalidIdentifierCharacterError
			require.ErrorAs(t, err, &invalid)
			require.Equal(t, tt.char, invalid.Char)
		})
	}
}

func TestGenerateInvalidRequest(t *testing.T) {
	n := New(DefaultConfig())

	_, err := n.Generate(Request{Kind: KindIndex, Table: "employees"})
	require.ErrorIs(t, err, ErrInvalidRequest)

	_, err = n.Generate(Request{Kind: KindForeignKey, Columns: []string{"post_id"}})
	require.ErrorIs(t, err, ErrInvalidRequest)
}

func TestLongerLimitKeepsDefaultNames(t *testing.T) {
	n := New(Config{MaxLength: 63})

	got, err := n.IndexName("test_employees", "first_name", "middle_name", "last_name")
	require.NoError(t, err)
	require.Equal(t, "index_test_employees_on_first_name_and_middle_name_and_last_name", got)
}

func TestSequenceAndTriggerNames(t *testing.T) {
	n := New(DefaultConfig())

	assert.Equal(t, "test_employees_seq", n.SequenceName("test_employees"))
	assert.Equal(t, "test_employees_pkt", n.TriggerName("test_employees"))

	long := "a_table_name_that_is_thirty_ch"
	assert.Equal(t, "a_table_name_that_is_thirt_seq", n.SequenceName(long))
	assert.Len(t, n.SequenceName(long), OracleMaxLength)

	upper := New(Config{Fold: FoldUpper})
	assert.Equal(t, "KEYBOARDS_SEQ", upper.SequenceName("keyboards"))
}

func TestValidate(t *testing.T) {
	n := New(DefaultConfig())

	require.NoError(t, n.Validate("test_employees_s"))
	require.NoError(t, n.Validate("emp$seq#1"))

	var tooLong *NameTooLongError
	require.ErrorAs(t, n.Validate(strings.Repeat("s", 31)), &tooLong)
	require.Equal(t, KindObject, tooLong.Kind)

	var invalid *InvalidIdentifierCharacterError
	require.ErrorAs(t, n.Validate(""), &invalid)
}

func TestParseFold(t *testing.T) {
	for in, want := range map[string]Fold{"": FoldDefault, "UPPER": FoldUpper, " lower ": FoldLower, "none": FoldNone} {
		got, err := ParseFold(in)
		require.NoError(t, err)
		require.Equal(t, want, got, in)
	}
	_, err := ParseFold("title")
	require.Error(t, err)
}
