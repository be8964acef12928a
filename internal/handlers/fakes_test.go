package handlers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mahirjain10/image-handlers/internal/types"
)

var errNotFound = errors.New("NoSuchKey")

type putCall struct {
	Key         string
	Body        []byte
	ContentType string
	Metadata    map[string]string
}

type fakeStore struct {
	mu      sync.Mutex
	objects map[string]*types.ImageObject
	putErr  map[string]error
	copyErr error

	gets   []string
	puts   []putCall
	copies [][2]string
	events []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: map[string]*types.ImageObject{}, putErr: map[string]error{}}
}

func (s *fakeStore) add(key string, body []byte, metadata map[string]string) {
	s.objects[key] = &types.ImageObject{Body: body, Metadata: metadata, ContentType: "image/jpeg"}
}

func (s *fakeStore) Get(ctx context.Context, bucket string, key string) (*types.ImageObject, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets = append(s.gets, key)
	s.events = append(s.events, "get:"+key)
	obj, ok := s.objects[key]
	if !ok {
		return nil, fmt.Errorf("get %s/%s: %w", bucket, key, errNotFound)
	}
	return obj, nil
}

func (s *fakeStore) Put(ctx context.Context, bucket string, key string, body []byte, contentType string, metadata map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, "put:"+key)
	if err := s.putErr[key]; err != nil {
		return err
	}
	s.puts = append(s.puts, putCall{Key: key, Body: body, ContentType: contentType, Metadata: metadata})
	return nil
}

func (s *fakeStore) Copy(ctx context.Context, bucket string, sourceKey string, destKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, "copy:"+sourceKey+"->"+destKey)
	if s.copyErr != nil {
		return s.copyErr
	}
	s.copies = append(s.copies, [2]string{sourceKey, destKey})
	return nil
}

func (s *fakeStore) putKeys() map[string]putCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[string]putCall{}
	for _, p := range s.puts {
		out[p.Key] = p
	}
	return out
}

type fakeCodec struct {
	mu        sync.Mutex
	infos     map[string]types.ImageInfo
	encoded   []byte
	encodeErr error
	resizeErr error

	encodeOpts []types.EncodeOptions
}

func (c *fakeCodec) Identify(buffer []byte) (types.ImageInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	info, ok := c.infos[string(buffer)]
	if !ok {
		return types.ImageInfo{}, errors.New("cannot identify")
	}
	return info, nil
}

func (c *fakeCodec) Encode(buffer []byte, opts types.EncodeOptions) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.encodeOpts = append(c.encodeOpts, opts)
	if c.encodeErr != nil {
		return nil, c.encodeErr
	}
	return c.encoded, nil
}

func (c *fakeCodec) Resize(buffer []byte, width int, height int) ([]byte, error) {
	if c.resizeErr != nil {
		return nil, c.resizeErr
	}
	return []byte(fmt.Sprintf("%dx%d", width, height)), nil
}

type fakeObserver struct {
	mu       sync.Mutex
	outcomes []string
	saved    int64
}

func (o *fakeObserver) RecordOutcome(handler string, outcome string, duration time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes = append(o.outcomes, handler+":"+outcome)
}

func (o *fakeObserver) RecordBytesSaved(handler string, n int64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.saved += n
}
