package repo

import (
	"context"
	"database/sql"

	"depotplan/internal/domain"
)

const bayColumns = `id,track_id,position,status,train_id,shunting_depth,reserved_until`

func scanBay(s scanner) (domain.StablingBay, error) {
	var b domain.StablingBay
	var train, reserved sql.NullString
	var depth sql.NullInt64
	if err := s.Scan(&b.ID, &b.TrackID, &b.Position, &b.Status, &train, &depth, &reserved); err != nil {
		return b, err
	}
	if train.Valid {
		id := train.String
		b.TrainID = &id
	}
	b.ShuntingDepth = intPtr(depth)
	var err error
	b.ReservedUntil, err = parseNullTS(reserved)
	return b, err
}

func nullTrainID(id *string) any {
	if id == nil {
		return nil
	}
	return nullable(*id)
}

func (r Repo) InsertBay(ctx context.Context, b domain.StablingBay) error {
	_, err := r.q().ExecContext(ctx, `INSERT INTO stabling_bays(`+bayColumns+`) VALUES (?,?,?,?,?,?,?)`,
		b.ID, b.TrackID, b.Position, string(b.Status), nullTrainID(b.TrainID), nullInt(b.ShuntingDepth), nullTime(b.ReservedUntil))
	return err
}

func (r Repo) GetBay(ctx context.Context, id string) (domain.StablingBay, error) {
	b, err := scanBay(r.q().QueryRowContext(ctx, `SELECT `+bayColumns+` FROM stabling_bays WHERE id=?`, id))
	if isNoRows(err) {
		return domain.StablingBay{}, notFound("bay", id)
	}
	return b, err
}

// BayForTrain returns the bay a train occupies, ErrNotFound when none.
func (r Repo) BayForTrain(ctx context.Context, trainID string) (domain.StablingBay, error) {
	b, err := scanBay(r.q().QueryRowContext(ctx, `SELECT `+bayColumns+` FROM stabling_bays WHERE train_id=? LIMIT 1`, trainID))
	if isNoRows(err) {
		return domain.StablingBay{}, notFound("bay for train", trainID)
	}
	return b, err
}

// ListBays returns bays in layout order.
func (r Repo) ListBays(ctx context.Context) ([]domain.StablingBay, error) {
	return r.queryBays(ctx, `SELECT `+bayColumns+` FROM stabling_bays ORDER BY track_id, position, id`)
}

// AvailableBays returns AVAILABLE bays in layout order; ranking is left to the allocator.
func (r Repo) AvailableBays(ctx context.Context) ([]domain.StablingBay, error) {
	return r.queryBays(ctx, `SELECT `+bayColumns+` FROM stabling_bays WHERE status=? ORDER BY track_id, position, id`, string(domain.BayAvailable))
}

func (r Repo) queryBays(ctx context.Context, query string, args ...any) ([]domain.StablingBay, error) {
	rows, err := r.q().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.StablingBay
	for rows.Next() {
		b, err := scanBay(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r Repo) SaveBay(ctx context.Context, b domain.StablingBay) error {
	res, err := r.q().ExecContext(ctx, `UPDATE stabling_bays SET track_id=?,position=?,status=?,train_id=?,shunting_depth=?,reserved_until=? WHERE id=?`,
		b.TrackID, b.Position, string(b.Status), nullTrainID(b.TrainID), nullInt(b.ShuntingDepth), nullTime(b.ReservedUntil), b.ID)
	if err != nil {
		return err
	}
	return checkAffected(res, "bay", b.ID)
}
