/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package repository

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/feature"
	"github.com/uptrace/bun/schema"

	"github.com/tomoncle/querydsl"
	"github.com/tomoncle/querydsl/bunstore"
	qschema "github.com/tomoncle/querydsl/schema"
	"github.com/tomoncle/querydsl/types"
)

type baseRepositoryImpl[T any] struct {
	db     bun.IDB
	path   querydsl.EntityPath[T]
	engine *querydsl.Engine
}

// NewRepository returns a generic repository for the entity T registered in
// reg, backed by db. Typed queries run through an engine built with opts and
// refer to T by its lower-cased entity name.
func NewRepository[T any](db bun.IDB, reg *qschema.Registry, opts ...querydsl.Option) (Repository[T], error) {
	meta, err := reg.EntityOf(reflect.TypeOf((*T)(nil)).Elem())
	if err != nil {
		return nil, err
	}
	path, err := querydsl.NewEntityPath[T](reg, strings.ToLower(meta.Name))
	if err != nil {
		return nil, err
	}
	return &baseRepositoryImpl[T]{
		db:     db,
		path:   path,
		engine: querydsl.NewEngine(bunstore.New(db), reg, opts...),
	}, nil
}

func (r *baseRepositoryImpl[T]) Dialect() schema.Dialect { return r.db.Dialect() }

func (r *baseRepositoryImpl[T]) NewSelect() *bun.SelectQuery { return r.db.NewSelect() }

func (r *baseRepositoryImpl[T]) NewInsert() *bun.InsertQuery { return r.db.NewInsert() }

func (r *baseRepositoryImpl[T]) NewUpdate() *bun.UpdateQuery { return r.db.NewUpdate() }

func (r *baseRepositoryImpl[T]) NewDelete() *bun.DeleteQuery { return r.db.NewDelete() }

func (r *baseRepositoryImpl[T]) Engine() *querydsl.Engine { return r.engine }

func (r *baseRepositoryImpl[T]) Path() querydsl.EntityPath[T] { return r.path }

func (r *baseRepositoryImpl[T]) WithTx(tx bun.IDB) Repository[T] {
	return &baseRepositoryImpl[T]{
		db:     tx,
		path:   r.path,
		engine: r.engine.WithStorage(bunstore.New(tx)),
	}
}

func (r *baseRepositoryImpl[T]) ValsToSlice(entity ...*T) []*T {
	entities := make([]*T, len(entity))
	copy(entities, entity)
	return entities
}

func (r *baseRepositoryImpl[T]) idColumn() string { return r.path.Meta().ID.Column }

func (r *baseRepositoryImpl[T]) query() querydsl.Query[*T] { return querydsl.SelectFrom[T](r.path) }

func (r *baseRepositoryImpl[T]) GetOne(ctx context.Context, id any) (*T, error) {
	return r.query().Where(r.path.Identifier().Eq(id)).FetchOne(ctx, r.engine)
}

func (r *baseRepositoryImpl[T]) GetAll(ctx context.Context) ([]*T, error) {
	return r.query().OrderBy(r.path.Identifier().Asc()).Fetch(ctx, r.engine)
}

func (r *baseRepositoryImpl[T]) Query(ctx context.Context, query string, args ...interface{}) ([]*T, error) {
	var entities []*T
	err := r.db.NewSelect().Model(&entities).Where(query, args...).Scan(ctx)
	return entities, err
}

func (r *baseRepositoryImpl[T]) FindAll(ctx context.Context, preds ...*querydsl.Predicate) ([]*T, error) {
	return r.query().Where(preds...).Fetch(ctx, r.engine)
}

func (r *baseRepositoryImpl[T]) FindOne(ctx context.Context, preds ...*querydsl.Predicate) (*T, error) {
	return r.query().Where(preds...).FetchOne(ctx, r.engine)
}

func (r *baseRepositoryImpl[T]) Count(ctx context.Context, preds ...*querydsl.Predicate) (int64, error) {
	return r.query().Where(preds...).FetchCount(ctx, r.engine)
}

func (r *baseRepositoryImpl[T]) Exists(ctx context.Context, preds ...*querydsl.Predicate) (bool, error) {
	rows, err := querydsl.Select[any](r.path.Identifier()).
		From(r.path).
		Where(preds...).
		Limit(1).
		Fetch(ctx, r.engine)
	if err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}

func (r *baseRepositoryImpl[T]) Page(ctx context.Context, pageRequest *types.PageRequest, preds ...*querydsl.Predicate) (*types.Pagination[*T], error) {
	page, err := r.query().
		Where(preds...).
		OrderBy(r.path.Identifier().Asc()).
		Offset(pageRequest.GetOffset()).
		Limit(pageRequest.GetLimit()).
		FetchPage(ctx, r.engine)
	if err != nil {
		return nil, err
	}
	return types.NewPagination(pageRequest, page.Items, page.Total), nil
}

func (r *baseRepositoryImpl[T]) Create(ctx context.Context, entity ...*T) error {
	return r.create(ctx, r.db, entity...)
}

func (r *baseRepositoryImpl[T]) Upsert(ctx context.Context, fields []string, duplicateKeys []string, entity ...*T) error {
	return r.multipleUpsert(ctx, r.db, fields, duplicateKeys, entity...)
}

func (r *baseRepositoryImpl[T]) Update(ctx context.Context, entity *T) error {
	_, err := r.db.NewUpdate().Model(entity).WherePK().Exec(ctx)
	return err
}

func (r *baseRepositoryImpl[T]) Delete(ctx context.Context, id any) error {
	return r.delete(ctx, r.db, id)
}

func (r *baseRepositoryImpl[T]) CreateWithTx(ctx context.Context, tx *bun.Tx, entity ...*T) error {
	return r.create(ctx, tx, entity...)
}

func (r *baseRepositoryImpl[T]) UpsertWithTx(ctx context.Context, tx *bun.Tx, fields []string, duplicateKeys []string, entity ...*T) error {
	return r.multipleUpsert(ctx, tx, fields, duplicateKeys, entity...)
}

func (r *baseRepositoryImpl[T]) UpdateWithTx(ctx context.Context, tx *bun.Tx, entity *T) error {
	_, err := tx.NewUpdate().Model(entity).WherePK().Exec(ctx)
	return err
}

func (r *baseRepositoryImpl[T]) DeleteWithTx(ctx context.Context, tx *bun.Tx, id any) error {
	return r.delete(ctx, tx, id)
}

func (r *baseRepositoryImpl[T]) create(ctx context.Context, db bun.IDB, entity ...*T) error {
	if len(entity) == 0 {
		return nil
	}
	entities := r.ValsToSlice(entity...)
	_, err := db.NewInsert().Model(&entities).Exec(ctx)
	return err
}

func (r *baseRepositoryImpl[T]) delete(ctx context.Context, db bun.IDB, id any) error {
	var entity T
	_, err := db.NewDelete().Model(&entity).Where("? = ?", bun.Ident(r.idColumn()), id).Exec(ctx)
	return err
}

func (r *baseRepositoryImpl[T]) multipleUpsert(ctx context.Context, db bun.IDB, fields []string, duplicateKeys []string, entity ...*T) error {
	if len(fields) == 0 {
		return fmt.Errorf("fields cannot be empty")
	}
	entities := r.ValsToSlice(entity...)
	features := db.Dialect().Features()

	if features.Has(feature.InsertOnConflict) {
		return r.upsertWithPostgresqlOrSQLite(ctx, db.NewInsert(), fields, duplicateKeys, entities)
	} else if features.Has(feature.InsertOnDuplicateKey) {
		return r.upsertWithMySQL(ctx, db.NewInsert(), fields, entities)
	} else {
		// Fallback: Separate insert/update logic
		return r.upsertFallback(ctx, db, entities)
	}
}

func (r *baseRepositoryImpl[T]) upsertWithMySQL(ctx context.Context, insertQuery *bun.InsertQuery, fields []string, entities []*T) error {
	var queryArgs []string
	for _, field := range fields {
		queryArgs = append(queryArgs, fmt.Sprintf("%s = VALUES(%s)", field, field))
	}
	_, err := insertQuery.
		Model(&entities).
		On("DUPLICATE KEY UPDATE " + strings.Join(queryArgs, ", ")).
		Exec(ctx)
	return err
}

func (r *baseRepositoryImpl[T]) upsertWithPostgresqlOrSQLite(ctx context.Context, insertQuery *bun.InsertQuery, fields []string, duplicateKeys []string, entities []*T) error {
	if len(duplicateKeys) == 0 {
		duplicateKeys = []string{r.idColumn()}
	}
	keyNames := strings.Join(duplicateKeys, ",")
	var queryArgs []string
	for _, field := range fields {
		queryArgs = append(queryArgs, fmt.Sprintf("%s = EXCLUDED.%s", field, field))
	}
	_, err := insertQuery.
		Model(&entities).
		On("CONFLICT (" + keyNames + ") DO UPDATE").
		Set(strings.Join(queryArgs, ", ")).
		Exec(ctx)
	return err
}

func (r *baseRepositoryImpl[T]) upsertFallback(ctx context.Context, db bun.IDB, entities []*T) error {
	for _, entity := range entities {
		_, err := db.NewInsert().Model(entity).Exec(ctx)
		if err != nil {
			_, updateErr := db.NewUpdate().Model(entity).WherePK().Exec(ctx)
			if updateErr != nil {
				return fmt.Errorf("upsert failed for entity: insert error: %v, update error: %v", err, updateErr)
			}
		}
	}
	return nil
}
