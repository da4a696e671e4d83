package schema_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ora-schema/internal/schema"
)

const blogSchema = `
tables:
  - name: test_posts
    comment: Blog posts
    sequence_start_value: 100
    columns:
      - name: title
        type: string
        limit: 120
        "null": false
      - name: body
        type: text
  - name: test_comments
    primary_key_trigger: true
    sequence_name: test_comments_s
    sequence_start_value: "1000 NOCACHE INCREMENT BY 10"
    trigger_name: test_comments_t
    references:
      - name: test_post
        foreign_key: true
        dependent: delete
    indexes:
      - columns: [test_post_id]
  - name: legacy_codes
    id: false
    force: true
    columns:
      - name: code
        type: string
changes:
  - table: test_comments
    add_foreign_keys:
      - to_table: test_posts
        column: reply_to_id
        name: comments_reply_fk
    remove_indexes:
      - columns: [test_post_id]
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFile(t *testing.T) {
	def, err := schema.LoadFile(writeFile(t, "blog.yaml", blogSchema))
	require.NoError(t, err)
	require.Len(t, def.Tables, 3)

	posts := def.Tables[0]
	assert.Equal(t, "test_posts", posts.Name)
	assert.Equal(t, "Blog posts", posts.Comment)
	assert.True(t, posts.Options.HasID())
	assert.Equal(t, "id", posts.Options.PrimaryKeyColumn())
	assert.Equal(t, schema.StartAt(100), posts.Options.SequenceStartValue)
	require.Len(t, posts.Columns, 2)
	assert.Equal(t, schema.TypeString, posts.Columns[0].Type)
	assert.Equal(t, 120, posts.Columns[0].Limit)
	assert.False(t, posts.Columns[0].Nullable())
	assert.True(t, posts.Columns[1].Nullable())

	comments := def.Tables[1]
	assert.True(t, comments.Options.PrimaryKeyTrigger)
	assert.Equal(t, "test_comments_s", comments.Options.SequenceName)
	assert.Equal(t, "test_comments_t", comments.Options.TriggerName)
	assert.True(t, comments.Options.SequenceStartValue.IsRaw())
	assert.Equal(t, "1000 NOCACHE INCREMENT BY 10", comments.Options.SequenceStartValue.String())
	require.Len(t, comments.AllForeignKeys(), 1)
	fk := comments.AllForeignKeys()[0]
	assert.Equal(t, "test_posts", fk.ToTable)
	assert.Equal(t, "test_post_id", fk.ResolvedColumn())
	assert.Equal(t, schema.DependentDelete, fk.Dependent)

	codes := def.Tables[2]
	assert.False(t, codes.Options.HasID())
	assert.True(t, codes.Options.Force)

	require.Len(t, def.Changes, 1)
	change := def.Changes[0]
	assert.Equal(t, "test_comments", change.Table)
	require.Len(t, change.AddForeignKeys, 1)
	assert.Equal(t, "comments_reply_fk", change.AddForeignKeys[0].Name)
	require.Len(t, change.RemoveIndexes, 1)
	assert.Equal(t, []string{"test_post_id"}, change.RemoveIndexes[0].Columns)
}

func TestLoadFileRejectsInvalidDefinitions(t *testing.T) {
	cases := map[string]string{
		"missing column type": `
tables:
  - name: t
    columns:
      - name: c
`,
		"unknown dependent": `
tables:
  - name: t
    foreign_keys:
      - to_table: p
        dependent: restrict
`,
		"start clause without number": `
tables:
  - name: t
    sequence_start_value: NOCACHE
`,
		"removal without target": `
changes:
  - table: t
    remove_foreign_keys:
      - {}
`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := schema.LoadFile(writeFile(t, "bad.yaml", content))
			assert.Error(t, err)
		})
	}
}

func TestLoadFileMissing(t *testing.T) {
	_, err := schema.LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestParseStartValue(t *testing.T) {
	cases := []struct {
		in   any
		want schema.StartValue
	}{
		{nil, schema.StartValue{}},
		{42, schema.StartAt(42)},
		{int64(7), schema.StartAt(7)},
		{float64(10000), schema.StartAt(10000)},
		{" 55 ", schema.StartAt(55)},
		{"100 NOCACHE", schema.StartWithClause("100 NOCACHE")},
	}
	for _, c := range cases {
		got, err := schema.ParseStartValue(c.in)
		require.NoError(t, err, "input %v", c.in)
		assert.Equal(t, c.want, got, "input %v", c.in)
	}

	_, err := schema.ParseStartValue(1.5)
	assert.Error(t, err)
	_, err = schema.ParseStartValue(true)
	assert.Error(t, err)
}

func TestColumnFor(t *testing.T) {
	assert.Equal(t, "test_post_id", schema.ColumnFor("test_posts"))
	assert.Equal(t, "category_id", schema.ColumnFor("hr.categories"))
	assert.Equal(t, "person_id", schema.ColumnFor("people"))
}

func TestLoadFileAppliesTablePrefix(t *testing.T) {
	path := writeFile(t, "schema.yaml", `
table_prefix: xxx_
tables:
  - name: test_posts
  - name: test_comments
    references:
      - {name: test_post, foreign_key: true}
    foreign_keys:
      - {to_table: app.test_posts, column: reply_to_id}
changes:
  - table: test_comments
    add_foreign_keys:
      - {to_table: test_posts}
    remove_foreign_keys:
      - {to_table: test_posts}
`)
	def, err := schema.LoadFile(path)
	require.NoError(t, err)

	assert.Empty(t, def.TablePrefix)
	assert.Equal(t, "xxx_test_posts", def.Tables[0].Name)

	comments := def.Tables[1]
	assert.Equal(t, "xxx_test_comments", comments.Name)
	assert.Equal(t, "xxx_test_posts", comments.References[0].Table())
	assert.Equal(t, "test_post_id", comments.References[0].Column())
	assert.Equal(t, "app.xxx_test_posts", comments.ForeignKeys[0].ToTable)
	assert.Equal(t, "reply_to_id", comments.ForeignKeys[0].ResolvedColumn())

	change := def.Changes[0]
	assert.Equal(t, "xxx_test_comments", change.Table)
	assert.Equal(t, "xxx_test_posts", change.AddForeignKeys[0].ToTable)
	assert.Equal(t, "test_post_id", change.AddForeignKeys[0].ResolvedColumn())
	assert.Equal(t, "test_post_id", change.RemoveForeignKeys[0].ResolvedColumn())
}
