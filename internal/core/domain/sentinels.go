package domain

import "errors"

// Terminal pipeline failures. None of these are ever retried.
var (
	ErrQueueFull        = errors.New("offline queue is full")
	ErrQueueTimeout     = errors.New("queued request timed out")
	ErrQueueCleared     = errors.New("offline queue was cleared")
	ErrDispatcherClosed = errors.New("dispatcher closed")
)

// ErrOffline signals the client has no connectivity.
var ErrOffline = errors.New("client is offline")

// Codes attached to the terminal pipeline failures.
const (
	CodeQueueFull        = "QUEUE_FULL"
	CodeQueueTimeout     = "QUEUE_TIMEOUT"
	CodeQueueCleared     = "QUEUE_CLEARED"
	CodeDispatcherClosed = "DISPATCHER_CLOSED"
)
