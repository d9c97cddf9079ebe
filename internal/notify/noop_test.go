package notify_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/crowdprice/crowdprice/internal/notify"
	"github.com/crowdprice/crowdprice/pkg/logger"
)

func TestNoOpNotifier_Publish(t *testing.T) {
	t.Parallel()

	n := notify.NewNoOpNotifier(logger.Discard())
	assert.NoError(t, n.Publish(context.Background(), testEvent()))
}
