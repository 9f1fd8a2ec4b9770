package gateway

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/invoicenexus/internal/clock"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	opList          = "list"
	opRelated       = "get_related"
	opInsert        = "insert"
	opInsertMany    = "insert_many"
	opUpdate        = "update"
	opDelete        = "delete"
	opDeleteRelated = "delete_related"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Node  *snowflake.Node
	Clock clock.Clock
	Log   *zap.Logger
}

// GormGateway implements Gateway over any gorm dialect.
type GormGateway struct {
	db     *gorm.DB
	node   *snowflake.Node
	clock  clock.Clock
	log    *zap.Logger
	tracer trace.Tracer
}

func NewGormGateway(p Params) *GormGateway {
	log := p.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &GormGateway{
		db:     p.DB,
		node:   p.Node,
		clock:  p.Clock,
		log:    log.Named("gateway.gorm"),
		tracer: otel.Tracer("invoicenexus/gateway"),
	}
}

func (g *GormGateway) ListRows(ctx context.Context, table string) (rows []Row, err error) {
	ctx, end := g.start(ctx, opList, table)
	defer func() { end(err) }()

	spec, err := lookupTable(table)
	if err != nil {
		return nil, g.fail(opList, table, err)
	}

	var found []map[string]any
	if err := g.db.WithContext(ctx).Table(table).Order(spec.orderBy).Find(&found).Error; err != nil {
		return nil, g.fail(opList, table, err)
	}
	return toRows(found), nil
}

func (g *GormGateway) GetRelatedRows(ctx context.Context, table, foreignKey string, value any) (rows []Row, err error) {
	ctx, end := g.start(ctx, opRelated, table)
	defer func() { end(err) }()

	spec, err := lookupTable(table)
	if err != nil {
		return nil, g.fail(opRelated, table, err)
	}
	if err := spec.checkForeignKey(foreignKey); err != nil {
		return nil, g.fail(opRelated, table, err)
	}

	var found []map[string]any
	err = g.db.WithContext(ctx).
		Table(table).
		Where(fmt.Sprintf("%s = ?", foreignKey), value).
		Order(spec.orderBy).
		Find(&found).Error
	if err != nil {
		return nil, g.fail(opRelated, table, err)
	}
	return toRows(found), nil
}

func (g *GormGateway) InsertRow(ctx context.Context, table string, payload Row) (row Row, err error) {
	ctx, end := g.start(ctx, opInsert, table)
	defer func() { end(err) }()

	spec, err := lookupTable(table)
	if err != nil {
		return nil, g.fail(opInsert, table, err)
	}
	if err := spec.checkPayload(payload); err != nil {
		return nil, g.fail(opInsert, table, err)
	}

	values := g.prepareInsert(payload)
	id := values["id"]
	if err := g.db.WithContext(ctx).Table(table).Create(values).Error; err != nil {
		return nil, g.fail(opInsert, table, err)
	}

	stored := map[string]any{}
	if err := g.db.WithContext(ctx).Table(table).Where("id = ?", id).Take(&stored).Error; err != nil {
		return nil, g.fail(opInsert, table, err)
	}
	return normalizeRow(stored), nil
}

func (g *GormGateway) InsertRows(ctx context.Context, table string, payloads []Row) (rows []Row, err error) {
	ctx, end := g.start(ctx, opInsertMany, table)
	defer func() { end(err) }()

	spec, err := lookupTable(table)
	if err != nil {
		return nil, g.fail(opInsertMany, table, err)
	}
	if len(payloads) == 0 {
		return []Row{}, nil
	}

	values := make([]map[string]any, 0, len(payloads))
	ids := make([]any, 0, len(payloads))
	for _, payload := range payloads {
		if err := spec.checkPayload(payload); err != nil {
			return nil, g.fail(opInsertMany, table, err)
		}
		prepared := g.prepareInsert(payload)
		values = append(values, prepared)
		ids = append(ids, prepared["id"])
	}

	if err := g.db.WithContext(ctx).Table(table).Create(values).Error; err != nil {
		return nil, g.fail(opInsertMany, table, err)
	}

	var stored []map[string]any
	err = g.db.WithContext(ctx).Table(table).Where("id IN ?", ids).Order(spec.orderBy).Find(&stored).Error
	if err != nil {
		return nil, g.fail(opInsertMany, table, err)
	}
	return toRows(stored), nil
}

func (g *GormGateway) UpdateRow(ctx context.Context, table, id string, payload Row) (err error) {
	ctx, end := g.start(ctx, opUpdate, table)
	defer func() { end(err) }()

	spec, err := lookupTable(table)
	if err != nil {
		return g.fail(opUpdate, table, err)
	}
	if err := spec.checkPayload(payload); err != nil {
		return g.fail(opUpdate, table, err)
	}

	values := make(map[string]any, len(payload)+1)
	for k, v := range payload {
		if k == "id" || k == "created_at" {
			continue
		}
		values[k] = v
	}
	values["updated_at"] = g.clock.Now()

	tx := g.db.WithContext(ctx).Table(table).Where("id = ?", id).Updates(values)
	if tx.Error != nil {
		return g.fail(opUpdate, table, tx.Error)
	}
	if tx.RowsAffected == 0 {
		g.log.Debug("update matched no rows", zap.String("table", table), zap.String("id", id))
	}
	return nil
}

func (g *GormGateway) DeleteRow(ctx context.Context, table, id string) (err error) {
	ctx, end := g.start(ctx, opDelete, table)
	defer func() { end(err) }()

	if _, err := lookupTable(table); err != nil {
		return g.fail(opDelete, table, err)
	}

	// table is whitelisted above.
	if err := g.db.WithContext(ctx).Exec(fmt.Sprintf("DELETE FROM %s WHERE id = ?", table), id).Error; err != nil {
		return g.fail(opDelete, table, err)
	}
	return nil
}

func (g *GormGateway) DeleteRelatedRows(ctx context.Context, table, foreignKey string, value any) (err error) {
	ctx, end := g.start(ctx, opDeleteRelated, table)
	defer func() { end(err) }()

	spec, err := lookupTable(table)
	if err != nil {
		return g.fail(opDeleteRelated, table, err)
	}
	if err := spec.checkForeignKey(foreignKey); err != nil {
		return g.fail(opDeleteRelated, table, err)
	}

	stmt := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", table, foreignKey)
	if err := g.db.WithContext(ctx).Exec(stmt, value).Error; err != nil {
		return g.fail(opDeleteRelated, table, err)
	}
	return nil
}

func (g *GormGateway) prepareInsert(payload Row) map[string]any {
	values := make(map[string]any, len(payload)+3)
	for k, v := range payload {
		values[k] = v
	}
	if idString(values["id"]) == "" {
		values["id"] = g.node.Generate().String()
	}
	now := g.clock.Now()
	values["created_at"] = now
	values["updated_at"] = now
	return values
}

func (g *GormGateway) start(ctx context.Context, op, table string) (context.Context, func(error)) {
	ctx, span := g.tracer.Start(ctx, "gateway."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("db.table", table)),
	)
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "gateway error")
		}
		span.End()
	}
}

func (g *GormGateway) fail(op, table string, err error) *RemoteError {
	remoteErr := newRemoteError(op, table, err)
	g.log.Warn("remote store call failed",
		zap.String("op", op),
		zap.String("table", table),
		zap.String("kind", string(remoteErr.Kind)),
		zap.Error(err),
	)
	return remoteErr
}

func toRows(found []map[string]any) []Row {
	rows := make([]Row, 0, len(found))
	for _, r := range found {
		rows = append(rows, normalizeRow(r))
	}
	return rows
}

// normalizeRow turns driver byte slices into strings so rows compare and log cleanly.
func normalizeRow(r map[string]any) Row {
	row := make(Row, len(r))
	for k, v := range r {
		if b, ok := v.([]byte); ok {
			row[k] = string(b)
			continue
		}
		row[k] = v
	}
	return row
}

func idString(v any) string {
	switch id := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(id)
	case []byte:
		return strings.TrimSpace(string(id))
	case int64:
		return strconv.FormatInt(id, 10)
	case snowflake.ID:
		return id.String()
	default:
		return strings.TrimSpace(fmt.Sprint(id))
	}
}

var _ Gateway = (*GormGateway)(nil)
