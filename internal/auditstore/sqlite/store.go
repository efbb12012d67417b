package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/temirov/layeraudit/internal/gis"
	"github.com/temirov/layeraudit/internal/records"
)

const (
	driverNameConstant                   = "sqlite"
	defaultDatabasePathConstant          = "layer_audit.db"
	inMemoryPathConstant                 = ":memory:"
	tableNameConstant                    = "layer_audit"
	objectIDColumnConstant               = "OBJECTID"
	storeCapabilitiesConstant            = "Create,Query"
	urlSchemeConstant                    = "sqlite://"
	allRowsWhereConstant                 = "1=1"
	directoryPermissionsConstant         = 0o750
	createDirectoryErrorTemplateConstant = "sqlite: create directory for %s: %w"
	openErrorTemplateConstant            = "sqlite: open %s: %w"
	createTableErrorTemplateConstant     = "sqlite: create audit table: %w"
	tableInfoErrorTemplateConstant       = "sqlite: read audit table schema: %w"
	queryErrorTemplateConstant           = "sqlite: query audit table: %w"
	unknownFieldErrorTemplateConstant    = "unknown field %q"
	insertErrorTemplateConstant          = "insert failed: %v"
	emptyRowMessageConstant              = "row has no attributes"
	closedContextMessageConstant         = "sqlite: context cancelled before append"
	beginErrorTemplateConstant           = "sqlite: begin append: %w"
	commitErrorTemplateConstant          = "sqlite: commit append: %w"
)

var integerColumns = map[string]struct{}{
	strings.ToLower(records.FieldItemCreated):     {},
	strings.ToLower(records.FieldItemUpdated):     {},
	strings.ToLower(records.FieldDataUpdated):     {},
	strings.ToLower(records.FieldSchemaUpdated):   {},
	strings.ToLower(records.FieldTotalFeatures):   {},
	strings.ToLower(records.FieldIsAuthoritative): {},
	strings.ToLower(records.FieldRunTimestamp):    {},
	strings.ToLower(records.FieldSubLayerID):      {},
	strings.ToLower(records.FieldDeltaFeatures):   {},
}

// Configuration describes the local audit database.
type Configuration struct {
	// Path is the database file; ":memory:" keeps the table in memory.
	Path string
	// Columns lists the audit columns to create; empty means every known column.
	Columns []string
}

// Store implements gis.AuditTable on SQLite.
type Store struct {
	database *sql.DB
	path     string
}

// NewStore opens the database and creates the audit table when missing.
func NewStore(executionContext context.Context, configuration Configuration) (*Store, error) {
	databasePath := strings.TrimSpace(configuration.Path)
	if len(databasePath) == 0 {
		databasePath = defaultDatabasePathConstant
	}
	if databasePath != inMemoryPathConstant {
		if directoryError := os.MkdirAll(filepath.Dir(databasePath), directoryPermissionsConstant); directoryError != nil && !errors.Is(directoryError, os.ErrExist) {
			return nil, fmt.Errorf(createDirectoryErrorTemplateConstant, databasePath, directoryError)
		}
	}

	database, openError := sql.Open(driverNameConstant, databasePath)
	if openError != nil {
		return nil, fmt.Errorf(openErrorTemplateConstant, databasePath, openError)
	}
	database.SetMaxOpenConns(1)

	columns := configuration.Columns
	if len(columns) == 0 {
		columns = records.AllFieldNames()
	}
	if _, createError := database.ExecContext(executionContext, createTableStatement(columns)); createError != nil {
		_ = database.Close()
		return nil, fmt.Errorf(createTableErrorTemplateConstant, createError)
	}
	return &Store{database: database, path: databasePath}, nil
}

func createTableStatement(columns []string) string {
	definitions := make([]string, 0, len(columns)+1)
	definitions = append(definitions, quoteIdentifier(objectIDColumnConstant)+" INTEGER PRIMARY KEY AUTOINCREMENT")
	for _, column := range columns {
		columnType := "TEXT"
		if _, integer := integerColumns[strings.ToLower(column)]; integer {
			columnType = "INTEGER"
		}
		definitions = append(definitions, quoteIdentifier(column)+" "+columnType)
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", tableNameConstant, strings.Join(definitions, ", "))
}

// Close releases the database handle.
func (store *Store) Close() error {
	return store.database.Close()
}

// URL identifies the store in logs.
func (store *Store) URL() string {
	return urlSchemeConstant + store.path
}

// Properties reports append and query capabilities and the declared columns.
func (store *Store) Properties(executionContext context.Context) (gis.TableProperties, error) {
	columnRows, queryError := store.database.QueryContext(executionContext, fmt.Sprintf("PRAGMA table_info(%s)", tableNameConstant))
	if queryError != nil {
		return gis.TableProperties{}, fmt.Errorf(tableInfoErrorTemplateConstant, queryError)
	}
	defer func() { _ = columnRows.Close() }()

	fields := make([]gis.Field, 0)
	for columnRows.Next() {
		var (
			columnIndex  int
			columnName   string
			columnType   string
			notNull      int
			defaultValue sql.NullString
			primaryKey   int
		)
		if scanError := columnRows.Scan(&columnIndex, &columnName, &columnType, &notNull, &defaultValue, &primaryKey); scanError != nil {
			return gis.TableProperties{}, fmt.Errorf(tableInfoErrorTemplateConstant, scanError)
		}
		fields = append(fields, gis.Field{Name: columnName, Type: columnType})
	}
	if iterationError := columnRows.Err(); iterationError != nil {
		return gis.TableProperties{}, fmt.Errorf(tableInfoErrorTemplateConstant, iterationError)
	}
	return gis.TableProperties{Capabilities: storeCapabilitiesConstant, Fields: fields}, nil
}

// Query returns rows matching the predicate. Unknown output fields are rejected.
func (store *Store) Query(executionContext context.Context, parameters gis.QueryParameters) ([]gis.Row, error) {
	declaredColumns, columnsError := store.columnLookup(executionContext)
	if columnsError != nil {
		return nil, columnsError
	}

	selectedColumns := make([]string, 0, len(parameters.OutFields))
	for _, outField := range parameters.OutFields {
		trimmedField := strings.TrimSpace(outField)
		if trimmedField == "*" {
			selectedColumns = selectedColumns[:0]
			break
		}
		canonicalName, declared := declaredColumns[strings.ToLower(trimmedField)]
		if !declared {
			return nil, fmt.Errorf(queryErrorTemplateConstant, fmt.Errorf(unknownFieldErrorTemplateConstant, trimmedField))
		}
		selectedColumns = append(selectedColumns, quoteIdentifier(canonicalName))
	}
	selection := "*"
	if len(selectedColumns) > 0 {
		selection = strings.Join(selectedColumns, ", ")
	}

	where := strings.TrimSpace(parameters.Where)
	if len(where) == 0 {
		where = allRowsWhereConstant
	}
	statement := fmt.Sprintf("SELECT %s FROM %s WHERE %s", selection, tableNameConstant, where)
	if orderBy := strings.TrimSpace(parameters.OrderBy); len(orderBy) > 0 {
		statement += " ORDER BY " + orderBy
	}
	if parameters.RecordCount > 0 {
		statement += fmt.Sprintf(" LIMIT %d", parameters.RecordCount)
	}

	resultRows, queryError := store.database.QueryContext(executionContext, statement)
	if queryError != nil {
		return nil, fmt.Errorf(queryErrorTemplateConstant, queryError)
	}
	defer func() { _ = resultRows.Close() }()

	columnNames, namesError := resultRows.Columns()
	if namesError != nil {
		return nil, fmt.Errorf(queryErrorTemplateConstant, namesError)
	}
	rows := make([]gis.Row, 0)
	for resultRows.Next() {
		values := make([]any, len(columnNames))
		targets := make([]any, len(columnNames))
		for valueIndex := range values {
			targets[valueIndex] = &values[valueIndex]
		}
		if scanError := resultRows.Scan(targets...); scanError != nil {
			return nil, fmt.Errorf(queryErrorTemplateConstant, scanError)
		}
		row := make(gis.Row, len(columnNames))
		for columnIndex, columnName := range columnNames {
			if rawBytes, isBytes := values[columnIndex].([]byte); isBytes {
				row[columnName] = string(rawBytes)
				continue
			}
			row[columnName] = values[columnIndex]
		}
		rows = append(rows, row)
	}
	if iterationError := resultRows.Err(); iterationError != nil {
		return nil, fmt.Errorf(queryErrorTemplateConstant, iterationError)
	}
	return rows, nil
}

// AddRecords inserts rows inside one transaction and reports a result for each. A failing
// row does not roll back the others; a failed commit fails the whole batch.
func (store *Store) AddRecords(executionContext context.Context, rows []gis.Row) ([]gis.AddResult, error) {
	if contextError := executionContext.Err(); contextError != nil {
		return nil, fmt.Errorf("%s: %w", closedContextMessageConstant, contextError)
	}
	declaredColumns, columnsError := store.columnLookup(executionContext)
	if columnsError != nil {
		return nil, columnsError
	}

	transaction, beginError := store.database.BeginTx(executionContext, nil)
	if beginError != nil {
		return nil, fmt.Errorf(beginErrorTemplateConstant, beginError)
	}
	results := make([]gis.AddResult, 0, len(rows))
	for _, row := range rows {
		results = append(results, insertRow(executionContext, transaction, declaredColumns, row))
	}
	if commitError := transaction.Commit(); commitError != nil {
		return nil, fmt.Errorf(commitErrorTemplateConstant, commitError)
	}
	return results, nil
}

func insertRow(executionContext context.Context, transaction *sql.Tx, declaredColumns map[string]string, row gis.Row) gis.AddResult {
	if len(row) == 0 {
		return gis.AddResult{ErrorDescription: emptyRowMessageConstant}
	}
	columns := make([]string, 0, len(row))
	placeholders := make([]string, 0, len(row))
	arguments := make([]any, 0, len(row))
	for fieldName, value := range row {
		canonicalName, declared := declaredColumns[strings.ToLower(fieldName)]
		if !declared || strings.EqualFold(canonicalName, objectIDColumnConstant) {
			return gis.AddResult{ErrorDescription: fmt.Sprintf(unknownFieldErrorTemplateConstant, fieldName)}
		}
		columns = append(columns, quoteIdentifier(canonicalName))
		placeholders = append(placeholders, "?")
		arguments = append(arguments, value)
	}
	statement := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", tableNameConstant, strings.Join(columns, ", "), strings.Join(placeholders, ", "))
	if _, insertError := transaction.ExecContext(executionContext, statement, arguments...); insertError != nil {
		return gis.AddResult{ErrorDescription: fmt.Sprintf(insertErrorTemplateConstant, insertError)}
	}
	return gis.AddResult{Success: true}
}

func (store *Store) columnLookup(executionContext context.Context) (map[string]string, error) {
	properties, propertiesError := store.Properties(executionContext)
	if propertiesError != nil {
		return nil, propertiesError
	}
	lookup := make(map[string]string, len(properties.Fields))
	for _, field := range properties.Fields {
		lookup[strings.ToLower(field.Name)] = field.Name
	}
	return lookup, nil
}

func quoteIdentifier(identifier string) string {
	return `"` + strings.ReplaceAll(identifier, `"`, `""`) + `"`
}
