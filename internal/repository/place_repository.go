package repository

import (
	"context"
	"database/sql"

	"github.com/safepath/safepath-server/internal/model"
)

type PlaceRepo struct{ DB *sql.DB }

func NewPlaceRepo(db *sql.DB) *PlaceRepo { return &PlaceRepo{DB: db} }

// FindNearby returns cached places within radiusKm of the point, closest
// first. An empty result means the area has not been fetched yet.
func (r *PlaceRepo) FindNearby(ctx context.Context, lat, lng, radiusKm float64, placeType string, limit int) ([]model.Place, error) {
	q := "SELECT id, name, type, address, lat, lng, source, created_at FROM places WHERE " +
		haversineKm("lat", "lng") + " <= ?"
	args := []any{lat, lng, lat, radiusKm}
	if placeType != "" {
		q += " AND type=?"
		args = append(args, placeType)
	}
	q += " ORDER BY " + haversineKm("lat", "lng") + " ASC LIMIT ?"
	args = append(args, lat, lng, lat, limit)

	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Place{}
	for rows.Next() {
		var p model.Place
		var addr, src sql.NullString
		if err := rows.Scan(&p.ID, &p.Name, &p.Type, &addr, &p.Lat, &p.Lng, &src, &p.CreatedAt); err != nil {
			return nil, err
		}
		p.Address = addr.String
		p.Source = src.String
		out = append(out, p)
	}
	return out, rows.Err()
}

// SaveAll caches freshly fetched places. Duplicate coordinates for the same
// name are skipped so re-fetching an area stays idempotent.
func (r *PlaceRepo) SaveAll(ctx context.Context, places []model.Place) error {
	if len(places) == 0 {
		return nil
	}
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, p := range places {
		if _, err := tx.ExecContext(ctx,
			"INSERT IGNORE INTO places (name, type, address, lat, lng, source) VALUES (?,?,?,?,?,?)",
			p.Name, p.Type, nullStr(p.Address), p.Lat, p.Lng, nullStr(p.Source)); err != nil {
			return err
		}
	}
	return tx.Commit()
}
