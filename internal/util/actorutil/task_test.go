package actorutil

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackgroundTaskReportsErrors(t *testing.T) {
	boom := errors.New("boom")
	var got error
	NewBackgroundTaskErr(func() error {
		return boom
	}).OnError(func(err error) {
		got = err
	}).Run()
	assert.ErrorIs(t, got, boom)

	got = nil
	NewBackgroundTaskErr(func() error {
		return nil
	}).WithTimeout(time.Second).OnError(func(err error) {
		got = err
	}).Run()
	assert.NoError(t, got)
}

func TestBackgroundTaskTimesOut(t *testing.T) {
	var got error
	NewBackgroundTaskErr(func() error {
		time.Sleep(500 * time.Millisecond)
		return nil
	}).WithTimeout(20 * time.Millisecond).OnError(func(err error) {
		got = err
	}).Run()
	assert.Error(t, got)
}
