package md

import (
	"context"
	"fmt"
	"log"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata/stream"
)

type BarHandler func(Bar)

// StartStream subscribes to live bars and blocks until the context ends.
func StartStream(ctx context.Context, apiKey, apiSecret, feed, symbol string, handler BarHandler) error {
	feedType := parseFeed(feed)
	client := stream.NewStocksClient(
		feedType,
		stream.WithCredentials(apiKey, apiSecret),
	)

	// Connect must be called before subscribing in this SDK version.
	if err := client.Connect(ctx); err != nil {
		return fmt.Errorf("connect market data stream: %w", err)
	}

	if err := client.SubscribeToBars(func(bar stream.Bar) {
		handler(Bar{
			Symbol:    bar.Symbol,
			Timestamp: bar.Timestamp.Unix(),
			Close:     bar.Close,
		})
	}, symbol); err != nil {
		return fmt.Errorf("subscribe to bars: %w", err)
	}

	log.Printf("subscribed to bars symbol=%s feed=%s", symbol, feed)

	<-ctx.Done()
	return ctx.Err()
}

func parseFeed(feed string) marketdata.Feed {
	switch feed {
	case "sip":
		return marketdata.SIP
	default:
		return marketdata.IEX
	}
}
