package libemit

import (
	"context"
	"net/http"
	"net/url"
)

type (
	// DialParams carries everything needed to open one outbound connection.
	DialParams struct {
		URL    url.URL
		Header http.Header
	}

	DialParamsGetter func(ctx context.Context) (DialParams, error)

	// DialParamsRepo resolves connection parameters right before each dial,
	// so rotating endpoints or refreshed auth headers are picked up on
	// every reconnect.
	DialParamsRepo struct {
		logger Logger
		getter DialParamsGetter
	}
)

func (r DialParamsRepo) Get(
	ctx context.Context,
) (params DialParams, err error) {
	params, err = r.getter(ctx)
	if err != nil {
		r.logger.Errorf("cannot fetch dial params: %s", err)
	}
	return
}

func NewDialParamsRepo(logger Logger, getter DialParamsGetter) DialParamsRepo {
	return DialParamsRepo{getter: getter, logger: logger}
}

// NewStaticDialParamsRepo resolves to the same endpoint on every dial.
func NewStaticDialParamsRepo(logger Logger, u url.URL, header http.Header) DialParamsRepo {
	return NewDialParamsRepo(logger, func(context.Context) (DialParams, error) {
		return DialParams{URL: u, Header: header}, nil
	})
}
