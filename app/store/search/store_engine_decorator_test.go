package search

import (
	"fmt"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/mytourbook/mytourbook-sub068/app/store"
	"github.com/mytourbook/mytourbook-sub068/app/store/engine"
)

func TestDecorator(t *testing.T) {
	engineMock := &engine.MockInterface{}
	searchMock := &MockIndexer{}
	wEngine := WrapEngine(engineMock, searchMock)

	newTour := func(i int, title string) store.Tour {
		return store.Tour{
			ID:      int64(i),
			Title:   store.Str(fmt.Sprintf("%s %d", title, i*100)),
			Markers: []store.Marker{{ID: int64(i * 10), Label: store.Str("marker")}},
		}
	}

	toursCount := 10
	searchMock.On("Queue", mock.Anything).Times(toursCount).Return(nil)
	for i := 1; i < toursCount+1; i++ {
		tour := newTour(i, "test test")
		engineMock.On("SaveTour", tour).Return(nil)
		assert.NoError(t, wEngine.SaveTour(tour))
	}
	searchMock.AssertNumberOfCalls(t, "Queue", toursCount)

	queued := searchMock.Calls[0].Arguments.Get(0).(store.Tour)
	assert.Equal(t, int64(1), queued.Markers[0].TourID, "markers linked to tour before indexing")

	deletesCount := 3
	searchMock.On("QueueDelete", mock.Anything).Times(deletesCount).Return(nil)
	for i := 1; i < deletesCount+1; i++ {
		engineMock.On("DeleteTour", int64(i)).Return(nil)
		assert.NoError(t, wEngine.DeleteTour(int64(i)))
	}
	searchMock.AssertNumberOfCalls(t, "QueueDelete", deletesCount)
}

func TestDecorator_StoreFailed(t *testing.T) {
	engineMock := &engine.MockInterface{}
	searchMock := &MockIndexer{}
	wEngine := WrapEngine(engineMock, searchMock)

	tour := store.Tour{ID: 1}
	engineMock.On("SaveTour", tour).Return(errors.New("disk full"))
	engineMock.On("DeleteTour", int64(2)).Return(engine.ErrTourNotFound)

	assert.EqualError(t, wEngine.SaveTour(tour), "disk full")
	assert.Equal(t, engine.ErrTourNotFound, wEngine.DeleteTour(2))
	searchMock.AssertNotCalled(t, "Queue", mock.Anything)
	searchMock.AssertNotCalled(t, "QueueDelete", mock.Anything)
}

func TestDecorator_IndexFailed(t *testing.T) {
	engineMock := &engine.MockInterface{}
	searchMock := &MockIndexer{}
	wEngine := WrapEngine(engineMock, searchMock)

	tour := store.Tour{ID: 5}
	engineMock.On("SaveTour", tour).Return(nil)
	searchMock.On("Queue", mock.Anything).Return(errors.New("queue closed"))
	assert.NoError(t, wEngine.SaveTour(tour), "index failure is not a store failure")
}
