package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"StrategyLab/internal/analysis"
	"StrategyLab/internal/model"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRun() *analysis.PortfolioResult {
	return &analysis.PortfolioResult{
		RunID:      "run-42",
		FinishedAt: time.Now(),
		Allocation: &model.AllocationResult{
			TotalCapital:   1000,
			TotalProfit:    50,
			TotalReturnPct: 5,
			GapPolicy:      model.GapZero,
		},
	}
}

func TestKafkaPublisher_HandleRun(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var got map[string]any
		if err := json.Unmarshal(val, &got); err != nil {
			return err
		}
		if got["run_id"] != "run-42" {
			return errors.New("unexpected run_id")
		}
		if got["total_profit"] != 50.0 {
			return errors.New("unexpected total_profit")
		}
		return nil
	})

	p := NewKafkaPublisherWithProducer(producer, "runs")
	require.NoError(t, p.HandleRun(context.Background(), sampleRun()))
	require.NoError(t, p.Close())
}

func TestKafkaPublisher_SendFailure(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	p := NewKafkaPublisherWithProducer(producer, "runs")
	err := p.HandleRun(context.Background(), sampleRun())
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
	require.NoError(t, p.Close())
}

func TestNew_NoBrokers(t *testing.T) {
	p, err := New(nil, "runs")
	require.NoError(t, err)
	assert.IsType(t, NoopPublisher{}, p)
	assert.NoError(t, p.HandleRun(context.Background(), sampleRun()))
}
