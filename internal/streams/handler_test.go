package streams

import (
	"testing"

	"github.com/jimdaga/habit-tracker/internal/database"
	"github.com/jimdaga/habit-tracker/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newDelivery(t *testing.T, db *gorm.DB, id string) *models.Delivery {
	t.Helper()
	d := &models.Delivery{
		DeliveryID:    id,
		ReminderJobID: 1,
		Transport:     "stream",
		Text:          "hi",
		Status:        models.DeliveryStatusProcessing,
	}
	require.NoError(t, db.Create(d).Error)
	return d
}

func openDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

func TestHandleDeliveryResult(t *testing.T) {
	db := openDB(t)
	handle := HandleDeliveryResult(db)
	newDelivery(t, db, "d-sent")
	newDelivery(t, db, "d-failed")

	require.NoError(t, handle(DeliveryResult{DeliveryID: "d-sent", Status: ResultStatusSent, Response: `{"ok":true}`}))
	require.NoError(t, handle(DeliveryResult{DeliveryID: "d-failed", Status: ResultStatusFailed, Error: "chat not found"}))

	var sent, failed models.Delivery
	require.NoError(t, db.Where("delivery_id = ?", "d-sent").First(&sent).Error)
	require.NoError(t, db.Where("delivery_id = ?", "d-failed").First(&failed).Error)

	assert.Equal(t, models.DeliveryStatusSent, sent.Status)
	assert.JSONEq(t, `{"ok":true}`, string(sent.Response))
	assert.NotNil(t, sent.CompletedAt)
	assert.Equal(t, models.DeliveryStatusFailed, failed.Status)
	assert.Equal(t, "chat not found", failed.ErrorMessage)

	// A late duplicate does not overwrite the outcome.
	require.NoError(t, handle(DeliveryResult{DeliveryID: "d-failed", Status: ResultStatusSent}))
	require.NoError(t, db.Where("delivery_id = ?", "d-failed").First(&failed).Error)
	assert.Equal(t, models.DeliveryStatusFailed, failed.Status)
}

func TestHandleDeliveryResult_Errors(t *testing.T) {
	db := openDB(t)
	handle := HandleDeliveryResult(db)
	newDelivery(t, db, "d-1")

	assert.Error(t, handle(DeliveryResult{DeliveryID: "missing", Status: ResultStatusSent}))
	assert.Error(t, handle(DeliveryResult{DeliveryID: "d-1", Status: "lost"}))
}

func TestDecodeResult(t *testing.T) {
	result, err := decodeResult(map[string]interface{}{
		"payload":        `{"delivery_id":"d-1","status":"sent"}`,
		"schema_version": SchemaVersionV1,
	})
	require.NoError(t, err)
	assert.Equal(t, "d-1", result.DeliveryID)
	assert.Equal(t, ResultStatusSent, result.Status)

	_, err = decodeResult(map[string]interface{}{})
	assert.Error(t, err)
	_, err = decodeResult(map[string]interface{}{"payload": `{"status":"sent"}`})
	assert.Error(t, err)
	_, err = decodeResult(map[string]interface{}{"payload": `{"delivery_id":"d"}`, "schema_version": "v9"})
	assert.Error(t, err)
	_, err = decodeResult(map[string]interface{}{"payload": `not json`})
	assert.Error(t, err)
}
