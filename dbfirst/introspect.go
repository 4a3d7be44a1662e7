// Package dbfirst builds an Entity Data Model from a live PostgreSQL schema.
//
// Tables become entity types and entity sets, primary keys become entity
// keys, and foreign keys become associations with a navigation property on
// each end. Column types are mapped through storetype.FromPostgres.
package dbfirst

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/rlch/edmx/edm"
	"github.com/rlch/edmx/storetype"
)

// Defaults for introspection.
const (
	DefaultSchema    = "public"
	DefaultNamespace = "DatabaseFirstModel"
)

// Querier is the subset of *sql.DB used for introspection.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Introspector reads table metadata from information_schema.
type Introspector struct {
	db        Querier
	logger    *zap.Logger
	schema    string
	namespace string
}

// Option configures an Introspector.
type Option func(*Introspector)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(i *Introspector) {
		i.logger = logger
	}
}

// WithSchema sets the database schema to introspect.
func WithSchema(schema string) Option {
	return func(i *Introspector) {
		i.schema = schema
	}
}

// WithNamespace sets the conceptual namespace of the produced model.
func WithNamespace(namespace string) Option {
	return func(i *Introspector) {
		i.namespace = namespace
	}
}

// New returns an Introspector over db.
func New(db Querier, opts ...Option) *Introspector {
	i := &Introspector{
		db:        db,
		logger:    zap.NewNop(),
		schema:    DefaultSchema,
		namespace: DefaultNamespace,
	}

	for _, opt := range opts {
		opt(i)
	}

	if i.logger == nil {
		i.logger = zap.NewNop()
	}

	return i
}

const tablesQuery = `
	SELECT table_name
	FROM information_schema.tables
	WHERE table_schema = $1 AND table_type = 'BASE TABLE'
	ORDER BY table_name
`

const columnsQuery = `
	SELECT
		table_name,
		column_name,
		data_type,
		is_nullable,
		COALESCE(character_maximum_length, 0),
		COALESCE(numeric_precision, 0),
		COALESCE(numeric_scale, 0),
		COALESCE(column_default, ''),
		is_identity
	FROM information_schema.columns
	WHERE table_schema = $1
	ORDER BY table_name, ordinal_position
`

const primaryKeysQuery = `
	SELECT tc.table_name, kcu.column_name
	FROM information_schema.table_constraints tc
	JOIN information_schema.key_column_usage kcu
		ON tc.constraint_schema = kcu.constraint_schema
		AND tc.constraint_name = kcu.constraint_name
	WHERE tc.table_schema = $1 AND tc.constraint_type = 'PRIMARY KEY'
	ORDER BY tc.table_name, kcu.ordinal_position
`

const foreignKeysQuery = `
	SELECT
		rc.constraint_name,
		kcu.table_name,
		kcu.column_name,
		pk.table_name,
		pk.column_name,
		rc.delete_rule
	FROM information_schema.referential_constraints rc
	JOIN information_schema.key_column_usage kcu
		ON kcu.constraint_schema = rc.constraint_schema
		AND kcu.constraint_name = rc.constraint_name
	JOIN information_schema.key_column_usage pk
		ON pk.constraint_schema = rc.unique_constraint_schema
		AND pk.constraint_name = rc.unique_constraint_name
		AND pk.ordinal_position = kcu.position_in_unique_constraint
	WHERE rc.constraint_schema = $1
	ORDER BY rc.constraint_name, kcu.ordinal_position
`

// foreignKey is one foreign key constraint, its columns in order.
type foreignKey struct {
	name             string
	table            string
	columns          []string
	principal        string
	principalColumns []string
	deleteRule       string
}

// Model introspects the configured schema.
func (i *Introspector) Model(ctx context.Context) (*edm.Model, error) {
	logger := i.logger.With(zap.String("schema", i.schema))

	m := &edm.Model{
		Namespace: i.namespace,
		Alias:     "Self",
		Container: &edm.EntityContainer{Name: i.namespace + "Entities"},
	}

	if err := i.loadTables(ctx, m); err != nil {
		return nil, err
	}

	if len(m.EntityTypes) == 0 {
		logger.Warn("Schema has no tables")

		return m, nil
	}

	if err := i.loadColumns(ctx, m); err != nil {
		return nil, err
	}

	if err := i.loadPrimaryKeys(ctx, m); err != nil {
		return nil, err
	}

	fks, err := i.loadForeignKeys(ctx)
	if err != nil {
		return nil, err
	}

	for _, fk := range fks {
		if !addAssociation(m, fk) {
			logger.Debug("Skipping foreign key outside the introspected tables", zap.String("constraint", fk.name))
		}
	}

	for _, et := range m.EntityTypes {
		if len(et.Key) == 0 {
			logger.Warn("Table has no primary key", zap.String("table", et.Name))
		}
	}

	logger.Debug("Introspected schema",
		zap.Int("tables", len(m.EntityTypes)),
		zap.Int("foreignKeys", len(m.Associations)))

	return m, nil
}

func (i *Introspector) loadTables(ctx context.Context, m *edm.Model) error {
	rows, err := i.db.QueryContext(ctx, tablesQuery, i.schema)
	if err != nil {
		return fmt.Errorf("dbfirst: listing tables: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var table string
		if err := rows.Scan(&table); err != nil {
			return fmt.Errorf("dbfirst: scanning table: %w", err)
		}

		m.EntityTypes = append(m.EntityTypes, &edm.EntityType{Name: table})
		m.Container.EntitySets = append(m.Container.EntitySets, &edm.EntitySet{
			Name:       table,
			EntityType: m.Qualify(table),
			Schema:     i.schema,
			Table:      table,
		})
	}

	return rows.Err()
}

func (i *Introspector) loadColumns(ctx context.Context, m *edm.Model) error {
	rows, err := i.db.QueryContext(ctx, columnsQuery, i.schema)
	if err != nil {
		return fmt.Errorf("dbfirst: listing columns: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			table, column, dataType, isNullable, defaultVal, isIdentity string
			length, precision, scale                                    int
		)

		if err := rows.Scan(&table, &column, &dataType, &isNullable, &length, &precision, &scale, &defaultVal, &isIdentity); err != nil {
			return fmt.Errorf("dbfirst: scanning column: %w", err)
		}

		et := m.EntityType(table)
		if et == nil {
			// Views report columns too.
			continue
		}

		edmType, ok := storetype.FromPostgres(dataType)
		if !ok {
			i.logger.Debug("Mapping unknown column type to String",
				zap.String("column", table+"."+column),
				zap.String("dataType", dataType))
		}

		p := &edm.Property{
			Name:     column,
			Type:     edmType,
			Nullable: isNullable == "YES",
		}

		if length > 0 && edmType == edm.TypeString {
			p.MaxLength = fmt.Sprint(length)
		}

		if edmType == edm.TypeDecimal && precision > 0 {
			p.Precision, p.Scale = &precision, &scale
		}

		if isIdentity == "YES" || isSerial(defaultVal) {
			p.StoreGeneratedPattern = edm.StoreGeneratedIdentity
		}

		et.Properties = append(et.Properties, p)
	}

	return rows.Err()
}

func (i *Introspector) loadPrimaryKeys(ctx context.Context, m *edm.Model) error {
	rows, err := i.db.QueryContext(ctx, primaryKeysQuery, i.schema)
	if err != nil {
		return fmt.Errorf("dbfirst: listing primary keys: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var table, column string
		if err := rows.Scan(&table, &column); err != nil {
			return fmt.Errorf("dbfirst: scanning primary key: %w", err)
		}

		if et := m.EntityType(table); et != nil {
			et.Key = append(et.Key, column)
		}
	}

	return rows.Err()
}

func (i *Introspector) loadForeignKeys(ctx context.Context) ([]*foreignKey, error) {
	rows, err := i.db.QueryContext(ctx, foreignKeysQuery, i.schema)
	if err != nil {
		return nil, fmt.Errorf("dbfirst: listing foreign keys: %w", err)
	}
	defer rows.Close()

	var (
		fks  []*foreignKey
		last *foreignKey
	)

	for rows.Next() {
		var name, table, column, principal, principalColumn, deleteRule string
		if err := rows.Scan(&name, &table, &column, &principal, &principalColumn, &deleteRule); err != nil {
			return nil, fmt.Errorf("dbfirst: scanning foreign key: %w", err)
		}

		if last == nil || last.name != name {
			last = &foreignKey{name: name, table: table, principal: principal, deleteRule: deleteRule}
			fks = append(fks, last)
		}

		last.columns = append(last.columns, column)
		last.principalColumns = append(last.principalColumns, principalColumn)
	}

	return fks, rows.Err()
}

// addAssociation adds the association of fk with a navigation on each end.
// It reports false when either table is not part of the model.
func addAssociation(m *edm.Model, fk *foreignKey) bool {
	dependent, principal := m.EntityType(fk.table), m.EntityType(fk.principal)
	if dependent == nil || principal == nil {
		return false
	}

	principalMult := edm.MultiplicityOne
	if anyNullable(dependent, fk.columns) {
		principalMult = edm.MultiplicityZeroOrOne
	}

	dependentMult := edm.MultiplicityMany
	if len(fk.columns) > 0 && slices.Equal(fk.columns, dependent.Key) {
		dependentMult = edm.MultiplicityZeroOrOne
	}

	principalRole, dependentRole := principal.Name, dependent.Name
	if principalRole == dependentRole {
		dependentRole += "1"
	}

	a := &edm.Association{
		Name: fk.name,
		Ends: [2]*edm.AssociationEnd{
			{Role: principalRole, Type: m.Qualify(principal.Name), Multiplicity: principalMult},
			{Role: dependentRole, Type: m.Qualify(dependent.Name), Multiplicity: dependentMult},
		},
		Constraint: &edm.ReferentialConstraint{
			Principal: edm.ConstraintRole{Role: principalRole, Properties: fk.principalColumns},
			Dependent: edm.ConstraintRole{Role: dependentRole, Properties: fk.columns},
		},
	}

	if fk.deleteRule == "CASCADE" {
		a.Ends[0].OnDelete = "Cascade"
	}

	m.Associations = append(m.Associations, a)

	relationship := m.Qualify(a.Name)

	principal.NavigationProperties = append(principal.NavigationProperties, &edm.NavigationProperty{
		Name:         navigationName(principal, dependent.Name),
		Relationship: relationship,
		FromRole:     principalRole,
		ToRole:       dependentRole,
	})
	dependent.NavigationProperties = append(dependent.NavigationProperties, &edm.NavigationProperty{
		Name:         navigationName(dependent, principal.Name),
		Relationship: relationship,
		FromRole:     dependentRole,
		ToRole:       principalRole,
	})

	m.Container.AssociationSets = append(m.Container.AssociationSets, &edm.AssociationSet{
		Name:        a.Name,
		Association: relationship,
		Ends: [2]edm.AssociationSetEnd{
			{Role: principalRole, EntitySet: principal.Name},
			{Role: dependentRole, EntitySet: dependent.Name},
		},
	})

	return true
}

// navigationName returns base, suffixed with a number when it collides
// with a member of et.
func navigationName(et *edm.EntityType, base string) string {
	name := base
	for n := 1; et.Property(name) != nil || et.NavigationProperty(name) != nil; n++ {
		name = fmt.Sprintf("%s%d", base, n)
	}

	return name
}

func anyNullable(et *edm.EntityType, columns []string) bool {
	for _, c := range columns {
		if p := et.Property(c); p == nil || p.Nullable {
			return true
		}
	}

	return false
}

// isSerial reports whether a column default draws from a sequence.
func isSerial(defaultVal string) bool {
	return strings.HasPrefix(defaultVal, "nextval(")
}
