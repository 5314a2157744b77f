/*
Copyright (C) 2026 ABTech Solution Agency

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package db

import (
	"reflect"
	"strings"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/abtechsolutionagency/shellff-platform-sub000/internal/actor"
	"github.com/abtechsolutionagency/shellff-platform-sub000/internal/events"
)

// RegisterCatalogCallbacks installs after-write callbacks on releases and
// release_tracks. Each completed write publishes a mutation event carrying the
// affected release ids and the acting user, so the refresh watcher never has
// to know about GORM. The callback itself only does id extraction and a
// non-blocking publish; it must not slow the write it wraps.
func RegisterCatalogCallbacks(db *gorm.DB, bus *events.Bus, logger zerolog.Logger) error {
	log := logger.With().Str("component", "catalog_callbacks").Logger()

	if err := db.Callback().Create().After("gorm:create").Register("shellff:catalog_after_create", catalogMutationCallback(bus, log, "create")); err != nil {
		return err
	}

	if err := db.Callback().Update().After("gorm:update").Register("shellff:catalog_after_update", catalogMutationCallback(bus, log, "update")); err != nil {
		return err
	}

	if err := db.Callback().Delete().After("gorm:delete").Register("shellff:catalog_after_delete", catalogMutationCallback(bus, log, "delete")); err != nil {
		return err
	}

	return nil
}

// catalogMutationCallback builds the after-write hook for one operation kind.
func catalogMutationCallback(bus *events.Bus, logger zerolog.Logger, operation string) func(*gorm.DB) {
	return func(tx *gorm.DB) {
		if tx.Error != nil || tx.Statement == nil {
			return
		}

		var (
			eventType events.EventType
			entity    string
			column    string
			field     string
		)

		switch tx.Statement.Table {
		case "releases":
			eventType = events.EventReleaseMutated
			entity = "release"
			column = "id"
			field = "ID"
		case "release_tracks":
			eventType = events.EventTrackMutated
			entity = "release_track"
			column = "release_id"
			field = "ReleaseID"
		default:
			return
		}

		ids := releaseIDsFromStatement(tx.Statement, column, field)
		if len(ids) == 0 {
			return
		}

		payload := events.Payload{
			"entity":      entity,
			"operation":   operation,
			"release_ids": ids,
		}
		if userID, ok := actor.UserIDFromContext(tx.Statement.Context); ok {
			payload["user_id"] = userID
		}

		bus.Publish(eventType, payload)

		logger.Debug().
			Str("entity", entity).
			Str("operation", operation).
			Strs("release_ids", ids).
			Msg("catalog mutation observed")
	}
}

// releaseIDsFromStatement extracts the affected release ids from a completed
// write. Preference order: where clause, then write data, then the write's
// destination value (which GORM also populates with results, covering batch
// creates that touch several releases).
func releaseIDsFromStatement(stmt *gorm.Statement, column, field string) []string {
	if ids := idsFromWhereClause(stmt, column); len(ids) > 0 {
		return ids
	}
	if ids := idsFromDestMap(stmt.Dest, column); len(ids) > 0 {
		return ids
	}
	return idsFromReflectValue(stmt.ReflectValue, field)
}

func idsFromWhereClause(stmt *gorm.Statement, column string) []string {
	whereClause, ok := stmt.Clauses["WHERE"]
	if !ok {
		return nil
	}
	where, ok := whereClause.Expression.(clause.Where)
	if !ok {
		return nil
	}

	seen := make(map[string]struct{})
	var ids []string
	add := func(v any) {
		if s, ok := v.(string); ok && s != "" {
			if _, dup := seen[s]; !dup {
				seen[s] = struct{}{}
				ids = append(ids, s)
			}
		}
	}

	for _, expr := range where.Exprs {
		switch e := expr.(type) {
		case clause.Eq:
			if clauseColumnName(e.Column) == column {
				add(e.Value)
			}
		case clause.IN:
			if clauseColumnName(e.Column) == column {
				for _, v := range e.Values {
					add(v)
				}
			}
		case clause.Expr:
			// Conditions built from raw SQL fragments like "id = ?".
			sql := strings.ToLower(e.SQL)
			if (sql == column+" = ?" || strings.HasSuffix(sql, "."+column+" = ?")) && len(e.Vars) == 1 {
				add(e.Vars[0])
			}
		}
	}
	return ids
}

func clauseColumnName(col any) string {
	switch c := col.(type) {
	case clause.Column:
		return c.Name
	case string:
		return c
	default:
		return ""
	}
}

func idsFromDestMap(dest any, column string) []string {
	m, ok := dest.(map[string]any)
	if !ok {
		return nil
	}
	if v, ok := m[column]; ok {
		if s, ok := v.(string); ok && s != "" {
			return []string{s}
		}
	}
	return nil
}

func idsFromReflectValue(rv reflect.Value, field string) []string {
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}

	seen := make(map[string]struct{})
	var ids []string
	collect := func(v reflect.Value) {
		for v.Kind() == reflect.Pointer {
			if v.IsNil() {
				return
			}
			v = v.Elem()
		}
		if v.Kind() != reflect.Struct {
			return
		}
		f := v.FieldByName(field)
		if !f.IsValid() || f.Kind() != reflect.String {
			return
		}
		id := f.String()
		if id == "" {
			return
		}
		if _, dup := seen[id]; !dup {
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}

	switch rv.Kind() {
	case reflect.Struct:
		collect(rv)
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			collect(rv.Index(i))
		}
	}
	return ids
}
