// Package mocks provides shared test doubles for the service and auth interfaces
// consumed by the API layer.
//
// MockJWTService uses function fields with default return values. The service
// mocks embed testify's mock.Mock:
//
//	tasks := new(mocks.TaskService)
//	tasks.On("GetTask", mock.Anything, mock.Anything).Return(task, nil)
package mocks
