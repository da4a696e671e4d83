package dialect

import "fmt"

// Factory returns the appropriate Dialect implementation based on driver name.
func GetDialect(driver string) (Dialect, error) {
	switch driver {
	case "oracle", "":
		return &OracleDialect{}, nil
	case "postgres":
		return &PostgresDialect{}, nil
	case "sqlserver", "mssql":
		return &MSSQLDialect{}, nil
	case "mysql":
		return &MysqlDialect{}, nil
	}
	return nil, fmt.Errorf("unsupported driver %q (want oracle, postgres, mysql or sqlserver)", driver)
}

// Ensure interface implementation
var _ Dialect = (*MysqlDialect)(nil)
var _ Dialect = (*PostgresDialect)(nil)
var _ Dialect = (*MSSQLDialect)(nil)
var _ Dialect = (*OracleDialect)(nil)
