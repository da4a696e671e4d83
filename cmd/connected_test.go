package cmd

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ora-schema/internal/dialect"
	"ora-schema/internal/engine"
	"ora-schema/internal/schema"
)

func blogDefinition() *schema.Definition {
	return &schema.Definition{Tables: []*schema.Table{
		{Name: "test_posts"},
		{Name: "test_comments", References: []*schema.Reference{{Name: "test_post", ForeignKey: true}}},
	}}
}

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func generatorFor(d dialect.Dialect) *engine.Generator {
	return engine.NewGenerator(d, engine.DefaultOptions(d), nil)
}

func TestDropTablesRunsHooksAroundStatements(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec("SET FOREIGN_KEY_CHECKS = 0").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DROP TABLE test_comments").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DROP TABLE test_posts").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("SET FOREIGN_KEY_CHECKS = 1").WillReturnResult(sqlmock.NewResult(0, 0))

	var out bytes.Buffer
	err := dropTables(context.Background(), &out, db, generatorFor(&dialect.MysqlDialect{}), blogDefinition(), false)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Contains(t, out.String(), "[02/02] OK       DROP TABLE test_posts")
}

func TestDropTablesRestoresChecksAfterFailure(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec("SET FOREIGN_KEY_CHECKS = 0").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DROP TABLE test_comments").WillReturnError(errors.New("Error 1051: Unknown table 'test_comments'"))
	mock.ExpectExec("SET FOREIGN_KEY_CHECKS = 1").WillReturnResult(sqlmock.NewResult(0, 0))

	var out bytes.Buffer
	err := dropTables(context.Background(), &out, db, generatorFor(&dialect.MysqlDialect{}), blogDefinition(), false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unknown table")
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Contains(t, out.String(), "FAILED")
}

func TestDropTablesIfExistsContinues(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec("SET FOREIGN_KEY_CHECKS = 0").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DROP TABLE test_comments").WillReturnError(errors.New("Error 1051: Unknown table 'test_comments'"))
	mock.ExpectExec("DROP TABLE test_posts").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("SET FOREIGN_KEY_CHECKS = 1").WillReturnResult(sqlmock.NewResult(0, 0))

	var out bytes.Buffer
	err := dropTables(context.Background(), &out, db, generatorFor(&dialect.MysqlDialect{}), blogDefinition(), true)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Contains(t, out.String(), "IGNORED")
}

func expectOracleCatalog(mock sqlmock.Sqlmock, d *dialect.OracleDialect, fks *sqlmock.Rows) {
	mock.ExpectQuery(d.GetTablesQuery("USER")).WithArgs("USER").
		WillReturnRows(sqlmock.NewRows([]string{"TABLE_NAME"}).AddRow("TEST_POSTS").AddRow("TEST_COMMENTS"))
	mock.ExpectQuery(d.GetForeignKeysQuery("USER")).WithArgs("USER").WillReturnRows(fks)
	mock.ExpectQuery(d.GetIndexesQuery("USER")).WithArgs("USER").
		WillReturnRows(sqlmock.NewRows([]string{"TABLE_NAME", "INDEX_NAME"}))
	mock.ExpectQuery(d.GetCommentsQuery("USER")).WithArgs("USER").
		WillReturnRows(sqlmock.NewRows([]string{"TABLE_NAME", "COLUMN_NAME", "COMMENTS"}))
}

func fkColumns() []string {
	return []string{"TABLE_NAME", "CONSTRAINT_NAME", "COLUMN_NAME", "REF_TABLE", "REF_COLUMN"}
}

func TestVerifySchemaPasses(t *testing.T) {
	db, mock := newMock(t)
	d := &dialect.OracleDialect{}
	expectOracleCatalog(mock, d, sqlmock.NewRows(fkColumns()).
		AddRow("TEST_COMMENTS", "TEST_COMMENTS_TEST_POST_ID_FK", "TEST_POST_ID", "TEST_POSTS", "ID"))

	var out bytes.Buffer
	require.NoError(t, verifySchema(context.Background(), &out, db, generatorFor(d), blogDefinition(), ""))
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Contains(t, out.String(), "[✓] foreign key TEST_COMMENTS_TEST_POST_ID_FK")
}

func TestVerifySchemaReportsMissingObjects(t *testing.T) {
	db, mock := newMock(t)
	d := &dialect.OracleDialect{}
	expectOracleCatalog(mock, d, sqlmock.NewRows(fkColumns()))

	var out bytes.Buffer
	err := verifySchema(context.Background(), &out, db, generatorFor(d), blogDefinition(), "")
	require.Error(t, err)
	assert.Equal(t, "verification failed: 1 problem(s)", err.Error())
	assert.Contains(t, out.String(), "[!] foreign key TEST_COMMENTS_TEST_POST_ID_FK")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyStatementsStopsAtFirstFailure(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec("CREATE TABLE a (id INT)").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE b (id INT)").WillReturnError(errors.New("ORA-00955: name is already used by an existing object"))

	steps := 0
	results, err := applyStatements(context.Background(), db, []engine.Statement{
		{SQL: "CREATE TABLE a (id INT)"},
		{SQL: "CREATE TABLE b (id INT)"},
		{SQL: "CREATE TABLE c (id INT)"},
	}, false, func(engine.StepResult) { steps++ })

	require.Error(t, err)
	assert.Contains(t, err.Error(), "step 2/3")
	require.Len(t, results, 2)
	assert.Equal(t, engine.StatusOK, results[0].Status)
	assert.Equal(t, engine.StatusFailed, results[1].Status)
	assert.Equal(t, 2, steps)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyStatementsDryRunExecutesNothing(t *testing.T) {
	db, mock := newMock(t)

	results, err := applyStatements(context.Background(), db, []engine.Statement{
		{SQL: "CREATE TABLE a (id INT)"},
		{SQL: "CREATE TABLE b (id INT)"},
	}, true, nil)

	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Equal(t, engine.StatusSkipped, r.Status)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}
