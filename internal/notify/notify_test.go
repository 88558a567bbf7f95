package notify_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"catalogadmin/internal/notify"
)

func TestCenterQueuesUntilDrained(t *testing.T) {
	center := notify.NewCenter()
	center.Success("Product created successfully")
	center.Error("Failed to load products")

	toasts := center.Drain()
	assert.Len(t, toasts, 2)
	assert.Equal(t, notify.KindSuccess, toasts[0].Kind)
	assert.Equal(t, "Product created successfully", toasts[0].Message)
	assert.Equal(t, notify.KindError, toasts[1].Kind)

	assert.Empty(t, center.Drain(), "draining clears the queue")
}
