package toc

import (
	"context"
	"sync"

	"github.com/frankbria/auto-author/internal/domain"
)

var _ txManager = &txManagerMock{}

type txManagerMock struct {
	RunInTxFunc func(ctx context.Context, fn func(context.Context) error) error

	calls struct {
		RunInTx []struct {
			Ctx context.Context
			Fn  func(context.Context) error
		}
	}
	lockRunInTx sync.RWMutex
}

func (mock *txManagerMock) RunInTx(ctx context.Context, fn func(context.Context) error) error {
	if mock.RunInTxFunc == nil {
		panic("txManagerMock.RunInTxFunc: method is nil but txManager.RunInTx was just called")
	}
	callInfo := struct {
		Ctx context.Context
		Fn  func(context.Context) error
	}{Ctx: ctx, Fn: fn}
	mock.lockRunInTx.Lock()
	mock.calls.RunInTx = append(mock.calls.RunInTx, callInfo)
	mock.lockRunInTx.Unlock()
	return mock.RunInTxFunc(ctx, fn)
}

func (mock *txManagerMock) RunInTxCalls() []struct {
	Ctx context.Context
	Fn  func(context.Context) error
} {
	mock.lockRunInTx.RLock()
	calls := mock.calls.RunInTx
	mock.lockRunInTx.RUnlock()
	return calls
}

var _ changePublisher = &changePublisherMock{}

type changePublisherMock struct {
	PublishTOCChangedFunc func(ctx context.Context, change domain.TOCChange) error

	calls struct {
		PublishTOCChanged []struct {
			Ctx    context.Context
			Change domain.TOCChange
		}
	}
	lockPublishTOCChanged sync.RWMutex
}

func (mock *changePublisherMock) PublishTOCChanged(ctx context.Context, change domain.TOCChange) error {
	if mock.PublishTOCChangedFunc == nil {
		panic("changePublisherMock.PublishTOCChangedFunc: method is nil but changePublisher.PublishTOCChanged was just called")
	}
	callInfo := struct {
		Ctx    context.Context
		Change domain.TOCChange
	}{Ctx: ctx, Change: change}
	mock.lockPublishTOCChanged.Lock()
	mock.calls.PublishTOCChanged = append(mock.calls.PublishTOCChanged, callInfo)
	mock.lockPublishTOCChanged.Unlock()
	return mock.PublishTOCChangedFunc(ctx, change)
}

func (mock *changePublisherMock) PublishTOCChangedCalls() []struct {
	Ctx    context.Context
	Change domain.TOCChange
} {
	mock.lockPublishTOCChanged.RLock()
	calls := mock.calls.PublishTOCChanged
	mock.lockPublishTOCChanged.RUnlock()
	return calls
}
