package driven

import (
	"context"
	"encoding/binary"
	"errors"
	"time"

	"github.com/goccy/go-json"
	"go.etcd.io/bbolt"

	"github.com/alorle/iptv-livecheck/internal/catalog"
	"github.com/alorle/iptv-livecheck/internal/probe"
)

const probesBucket = "probes"

// ProbeBoltDBRepository implements the ProbeRepository port using BoltDB.
// It uses nested buckets: probes/<uri> with timestamp-keyed entries.
type ProbeBoltDBRepository struct {
	db *bbolt.DB
}

// NewProbeBoltDBRepository creates a new BoltDB-backed probe repository.
// It initializes the required top-level bucket if it doesn't exist.
func NewProbeBoltDBRepository(db *bbolt.DB) (*ProbeBoltDBRepository, error) {
	if db == nil {
		return nil, errors.New("db cannot be nil")
	}

	err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(probesBucket))
		return err
	})
	if err != nil {
		return nil, err
	}

	return &ProbeBoltDBRepository{db: db}, nil
}

type attemptDTO struct {
	Stage      string `json:"stage"`
	Outcome    string `json:"outcome"`
	StatusCode int    `json:"status_code,omitempty"`
	Elapsed    int64  `json:"elapsed"`
	Note       string `json:"note,omitempty"`
}

// probeDTO is the JSON serialization format for a probe result.
type probeDTO struct {
	Name          string       `json:"name"`
	URI           string       `json:"uri"`
	Timestamp     int64        `json:"timestamp"`
	Reachable     bool         `json:"reachable"`
	Latency       int64        `json:"latency"`
	FailureReason string       `json:"failure_reason,omitempty"`
	Attempts      []attemptDTO `json:"attempts,omitempty"`
}

// Save persists a probe result to BoltDB.
func (r *ProbeBoltDBRepository) Save(ctx context.Context, result probe.Result) error {
	return r.SaveAll(ctx, []probe.Result{result})
}

// SaveAll persists a batch of probe results in one transaction.
func (r *ProbeBoltDBRepository) SaveAll(ctx context.Context, results []probe.Result) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return r.db.Update(func(tx *bbolt.Tx) error {
		top := tx.Bucket([]byte(probesBucket))
		if top == nil {
			return errors.New("probes bucket not found")
		}

		for _, result := range results {
			sub, err := top.CreateBucketIfNotExists([]byte(result.URI()))
			if err != nil {
				return err
			}

			data, err := json.Marshal(resultToDTO(result))
			if err != nil {
				return err
			}

			if err := sub.Put(timestampToKey(result.Timestamp()), data); err != nil {
				return err
			}
		}
		return nil
	})
}

// FindByURI retrieves all probe results for an endpoint,
// ordered by timestamp descending (most recent first).
func (r *ProbeBoltDBRepository) FindByURI(ctx context.Context, uri string) ([]probe.Result, error) {
	return r.find(ctx, uri, nil)
}

// FindByURISince retrieves probe results for an endpoint since the
// given time, ordered by timestamp descending.
func (r *ProbeBoltDBRepository) FindByURISince(ctx context.Context, uri string, since time.Time) ([]probe.Result, error) {
	sinceKey := timestampToKey(since)
	return r.find(ctx, uri, sinceKey)
}

func (r *ProbeBoltDBRepository) find(ctx context.Context, uri string, sinceKey []byte) ([]probe.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	results := []probe.Result{}

	err := r.db.View(func(tx *bbolt.Tx) error {
		top := tx.Bucket([]byte(probesBucket))
		if top == nil {
			return errors.New("probes bucket not found")
		}

		sub := top.Bucket([]byte(uri))
		if sub == nil {
			return nil // No probes for this endpoint
		}

		// Iterate in reverse (most recent first)
		c := sub.Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			// Keys are big-endian timestamps; stop when we go before the cutoff
			if sinceKey != nil && compareKeys(k, sinceKey) < 0 {
				break
			}

			result, err := dtoToResult(v)
			if err != nil {
				return err
			}
			results = append(results, result)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return results, nil
}

// DeleteBefore removes all probe results older than the given time.
// Buckets left empty are dropped.
func (r *ProbeBoltDBRepository) DeleteBefore(ctx context.Context, before time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return r.db.Update(func(tx *bbolt.Tx) error {
		top := tx.Bucket([]byte(probesBucket))
		if top == nil {
			return errors.New("probes bucket not found")
		}

		beforeKey := timestampToKey(before)
		var emptied [][]byte

		err := top.ForEach(func(k, v []byte) error {
			// v is nil for nested buckets
			if v != nil {
				return nil
			}

			sub := top.Bucket(k)
			if sub == nil {
				return nil
			}

			// Collect keys to delete (can't delete during iteration)
			var keysToDelete [][]byte
			c := sub.Cursor()
			for ck, _ := c.First(); ck != nil; ck, _ = c.Next() {
				if compareKeys(ck, beforeKey) >= 0 {
					break // Keys are sorted, no need to continue
				}
				keysToDelete = append(keysToDelete, append([]byte(nil), ck...))
			}

			for _, dk := range keysToDelete {
				if err := sub.Delete(dk); err != nil {
					return err
				}
			}

			if first, _ := sub.Cursor().First(); first == nil {
				emptied = append(emptied, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}

		for _, k := range emptied {
			if err := top.DeleteBucket(k); err != nil {
				return err
			}
		}
		return nil
	})
}

// timestampToKey converts a time.Time to an 8-byte big-endian key.
// This ensures chronological ordering in BoltDB's byte-sorted keys.
func timestampToKey(t time.Time) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, uint64(t.UnixNano()))
	return key
}

// compareKeys compares two 8-byte big-endian keys.
// Returns -1, 0, or 1.
func compareKeys(a, b []byte) int {
	va := binary.BigEndian.Uint64(a)
	vb := binary.BigEndian.Uint64(b)
	if va < vb {
		return -1
	}
	if va > vb {
		return 1
	}
	return 0
}

func resultToDTO(result probe.Result) probeDTO {
	dto := probeDTO{
		Name:          result.Entry().Name,
		URI:           result.URI(),
		Timestamp:     result.Timestamp().UnixNano(),
		Reachable:     result.Reachable(),
		Latency:       result.Latency().Nanoseconds(),
		FailureReason: string(result.FailureReason()),
	}
	for _, a := range result.Attempts() {
		dto.Attempts = append(dto.Attempts, attemptDTO{
			Stage:      string(a.Stage),
			Outcome:    string(a.Outcome),
			StatusCode: a.StatusCode,
			Elapsed:    a.Elapsed.Nanoseconds(),
			Note:       a.Note,
		})
	}
	return dto
}

// dtoToResult deserializes a JSON value into a probe.Result.
func dtoToResult(data []byte) (probe.Result, error) {
	var dto probeDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return probe.Result{}, err
	}

	reason, err := probe.ParseFailureReason(dto.FailureReason)
	if err != nil {
		return probe.Result{}, err
	}

	attempts := make([]probe.Attempt, 0, len(dto.Attempts))
	for _, a := range dto.Attempts {
		attempts = append(attempts, probe.Attempt{
			Stage:      probe.Stage(a.Stage),
			Outcome:    probe.Outcome(a.Outcome),
			StatusCode: a.StatusCode,
			Elapsed:    time.Duration(a.Elapsed),
			Note:       a.Note,
		})
	}

	return probe.ReconstructResult(
		catalog.Entry{Name: dto.Name, URI: dto.URI},
		time.Unix(0, dto.Timestamp),
		dto.Reachable,
		time.Duration(dto.Latency),
		attempts,
		reason,
	), nil
}
