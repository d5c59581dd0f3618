package framework

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/manningwu07/storyforge/params"
)

const (
	KindTrain    = "train"
	KindSave     = "save"
	KindGenerate = "generate"
)

// Task is what a framework worker pops off the queue. It answers with exactly
// one Reply published on the channel named after TaskID.
type Task struct {
	TaskID  string          `json:"task_id"`
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

type Reply struct {
	OK     bool            `json:"ok"`
	Error  string          `json:"error,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
}

// RedisClient drives a framework worker through a Redis list + pub/sub.
type RedisClient struct {
	rdb       *redis.Client
	queue     string
	ModelPath string
	Device    string
}

func NewRedisClient(rdb *redis.Client, queue, modelPath, device string) *RedisClient {
	return &RedisClient{rdb: rdb, queue: queue, ModelPath: modelPath, Device: device}
}

func (c *RedisClient) Train(ctx context.Context, cfg params.TrainingConfig, resumeFrom string) (*TrainResult, error) {
	var res TrainResult
	if err := c.call(ctx, KindTrain, trainRequest{TrainingConfig: cfg, ResumeFrom: resumeFrom}, &res); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTrainer, err)
	}
	return &res, nil
}

func (c *RedisClient) SaveModel(ctx context.Context, outputDir string) error {
	if err := c.call(ctx, KindSave, saveRequest{OutputDir: outputDir}, nil); err != nil {
		return fmt.Errorf("%w: save model: %w", ErrTrainer, err)
	}
	return nil
}

func (c *RedisClient) Generate(ctx context.Context, ids []int, p GenerateParams) ([]int, error) {
	req := generateRequest{Model: c.ModelPath, Device: c.Device, IDs: ids, GenerateParams: p}
	var res generateResponse
	if err := c.call(ctx, KindGenerate, req, &res); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGeneration, err)
	}
	return res.IDs, nil
}

func (c *RedisClient) Close() error {
	return c.rdb.Close()
}

func (c *RedisClient) call(ctx context.Context, kind string, payload, out any) error {
	task, err := NewTask(kind, payload)
	if err != nil {
		return err
	}
	item, err := json.Marshal(task)
	if err != nil {
		return err
	}

	// Subscribe before enqueueing, otherwise a fast worker can reply into the void.
	pubsub := c.rdb.Subscribe(ctx, task.TaskID)
	defer pubsub.Close()
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", task.TaskID, err)
	}

	if err := c.rdb.LPush(ctx, c.queue, item).Err(); err != nil {
		return fmt.Errorf("enqueue %s task: %w", kind, err)
	}

	msg, err := pubsub.ReceiveMessage(ctx)
	if err != nil {
		return fmt.Errorf("wait for %s reply: %w", kind, err)
	}
	return DecodeReply([]byte(msg.Payload), out)
}

func NewTask(kind string, payload any) (Task, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Task{}, err
	}
	return Task{TaskID: uuid.New().String(), Kind: kind, Payload: raw}, nil
}

// DecodeReply unpacks a worker reply into out (which may be nil).
func DecodeReply(raw []byte, out any) error {
	var r Reply
	if err := json.Unmarshal(raw, &r); err != nil {
		return fmt.Errorf("decode reply: %w", err)
	}
	if !r.OK {
		if r.Error == "" {
			return errors.New("worker reported failure")
		}
		return errors.New(r.Error)
	}
	if out == nil || len(r.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Result, out); err != nil {
		return fmt.Errorf("decode result: %w", err)
	}
	return nil
}
