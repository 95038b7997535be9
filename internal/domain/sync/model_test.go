package sync

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"agroedge/internal/domain/record"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartition(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		records int
		size    int
		want    []int
	}{
		{name: "250 by 100", records: 250, size: 100, want: []int{100, 100, 50}},
		{name: "exact multiple", records: 200, size: 100, want: []int{100, 100}},
		{name: "smaller than batch", records: 7, size: 100, want: []int{7}},
		{name: "zero size uploads nothing", records: 10, size: 0, want: nil},
		{name: "negative size uploads nothing", records: 10, size: -5, want: nil},
		{name: "no records", records: 0, size: 100, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			batches := Partition(record.KindSensorData, readings(tt.records), tt.size, now)

			var sizes []int
			for _, b := range batches {
				sizes = append(sizes, len(b.Records))
				assert.Equal(t, record.KindSensorData, b.Kind)
				assert.Equal(t, now, b.Timestamp)
			}
			assert.Equal(t, tt.want, sizes)
		})
	}
}

func TestPartition_KeepsOrder(t *testing.T) {
	batches := Partition(record.KindSensorData, readings(5), 2, time.Now())

	var ids []int64
	for _, b := range batches {
		ids = append(ids, record.IDs(b.Records)...)
	}
	assert.Equal(t, []int64{1, 2, 3, 4, 5}, ids)
}

func TestBatch_Envelope(t *testing.T) {
	ts := time.Date(2024, 6, 1, 10, 0, 0, 0, time.FixedZone("X", 3600))
	b := Batch{Kind: record.KindAlert, Timestamp: ts}

	env := b.Envelope("node-7")

	assert.Equal(t, "alerts", env.Type)
	assert.Equal(t, "node-7", env.Source)
	assert.Equal(t, time.UTC, env.Timestamp.Location())
}

func TestUpdateDelta_JSON(t *testing.T) {
	raw := `{"type":"device-command","key":"valve-3","value":{"open":true},"priority":"high"}`

	var d UpdateDelta
	require.NoError(t, json.Unmarshal([]byte(raw), &d))

	assert.Equal(t, DeltaDeviceCommand, d.Kind)
	assert.Equal(t, "valve-3", d.Key)
	assert.JSONEq(t, `{"open":true}`, string(d.Value))
	assert.JSONEq(t, `"high"`, string(d.Extra["priority"]))

	out, err := json.Marshal(d)
	require.NoError(t, err)
	assert.JSONEq(t, raw, string(out))
}

func TestStatus_Clone(t *testing.T) {
	now := time.Now()
	msg := "boom"
	s := Status{LastSync: &now, LastError: &msg, TotalSynced: 3}

	c := s.Clone()
	*c.LastError = "changed"
	*c.LastSync = now.Add(time.Hour)

	assert.Equal(t, "boom", *s.LastError)
	assert.Equal(t, now, *s.LastSync)
	assert.Equal(t, 3, c.TotalSynced)
}

func TestErrors(t *testing.T) {
	base := errors.New("status 500")
	up := &UploadError{Kind: record.KindSensorData, Size: 100, Attempts: 3, Err: base}
	assert.ErrorIs(t, up, base)
	assert.Contains(t, up.Error(), "100 records")

	cfgErr := errors.New("configurations: timeout")
	rec := &ReconcileError{Errs: []error{cfgErr, ErrOffline}}
	assert.ErrorIs(t, rec, cfgErr)
	assert.ErrorIs(t, rec, ErrOffline)

	var ce *ConfigurationError
	assert.ErrorAs(t, error(&ConfigurationError{Field: "batch_size", Reason: "must be positive"}), &ce)
}
