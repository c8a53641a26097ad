package store

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "strconv"
    "time"

    redis "github.com/redis/go-redis/v9"
)

// Redis persists jobs, uploads and the converted file index as hashes with
// a retention TTL.
type Redis struct {
    client *redis.Client
    ttl    time.Duration
}

func NewRedis(redisURL string, ttl time.Duration) (*Redis, error) {
    opt, err := redis.ParseURL(redisURL)
    if err != nil { return nil, fmt.Errorf("parse redis url: %w", err) }
    c := redis.NewClient(opt)
    ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
    defer cancel()
    if err := c.Ping(ctx).Err(); err != nil { return nil, fmt.Errorf("redis ping: %w", err) }
    return &Redis{client: c, ttl: ttl}, nil
}

func (s *Redis) Close() error { return s.client.Close() }

func (s *Redis) Ping(ctx context.Context) error { return s.client.Ping(ctx).Err() }

func jobKey(id string) string       { return fmt.Sprintf("job:%s:status", id) }
func uploadKey(id string) string    { return fmt.Sprintf("file:%s", id) }
func convertedKey(id string) string { return fmt.Sprintf("converted:%s", id) }

func (s *Redis) save(ctx context.Context, key string, m map[string]interface{}) error {
    pipe := s.client.TxPipeline()
    pipe.HSet(ctx, key, m)
    if s.ttl > 0 { pipe.Expire(ctx, key, s.ttl) }
    _, err := pipe.Exec(ctx)
    return err
}

func (s *Redis) SaveJob(ctx context.Context, j Job) error {
    return s.save(ctx, jobKey(j.ID), jobToHash(j))
}

func (s *Redis) GetJob(ctx context.Context, id string) (Job, bool, error) {
    res, err := s.client.HGetAll(ctx, jobKey(id)).Result()
    if err != nil { return Job{}, false, err }
    if len(res) == 0 { return Job{}, false, nil }
    j, err := jobFromHash(id, res)
    return j, err == nil, err
}

func (s *Redis) DeleteJob(ctx context.Context, id string) error {
    return s.client.Del(ctx, jobKey(id)).Err()
}

func (s *Redis) SaveUpload(ctx context.Context, u Upload) error {
    b, err := json.Marshal(u)
    if err != nil { return err }
    return s.save(ctx, uploadKey(u.ID), map[string]interface{}{"data": string(b)})
}

func (s *Redis) GetUpload(ctx context.Context, id string) (Upload, bool, error) {
    var u Upload
    ok, err := s.getJSON(ctx, uploadKey(id), &u)
    return u, ok, err
}

func (s *Redis) DeleteUpload(ctx context.Context, id string) error {
    return s.client.Del(ctx, uploadKey(id)).Err()
}

// IndexConverted makes a converted file downloadable by its file id.
func (s *Redis) IndexConverted(ctx context.Context, f ConvertedFile) error {
    b, err := json.Marshal(f)
    if err != nil { return err }
    return s.save(ctx, convertedKey(f.FileID), map[string]interface{}{"data": string(b), "job": f.JobID})
}

func (s *Redis) GetConverted(ctx context.Context, fileID string) (ConvertedFile, bool, error) {
    var f ConvertedFile
    ok, err := s.getJSON(ctx, convertedKey(fileID), &f)
    return f, ok, err
}

func (s *Redis) DeleteConverted(ctx context.Context, fileIDs ...string) error {
    if len(fileIDs) == 0 { return nil }
    keys := make([]string, len(fileIDs))
    for i, id := range fileIDs { keys[i] = convertedKey(id) }
    return s.client.Del(ctx, keys...).Err()
}

func (s *Redis) getJSON(ctx context.Context, key string, v interface{}) (bool, error) {
    raw, err := s.client.HGet(ctx, key, "data").Result()
    if errors.Is(err, redis.Nil) { return false, nil }
    if err != nil { return false, err }
    if err := json.Unmarshal([]byte(raw), v); err != nil {
        return false, fmt.Errorf("decode %s: %w", key, err)
    }
    return true, nil
}

type jobParams struct {
    FileIDs      []string `json:"fileIds"`
    Parser       string   `json:"parser"`
    Merge        bool     `json:"merge"`
    OutputFormat string   `json:"outputFormat"`
}

func jobToHash(j Job) map[string]interface{} {
    params, _ := json.Marshal(jobParams{FileIDs: j.FileIDs, Parser: j.Parser, Merge: j.Merge, OutputFormat: j.OutputFormat})
    errs, _ := json.Marshal(j.Errors)
    conv, _ := json.Marshal(j.Converted)
    m := map[string]interface{}{
        "status":       j.Status,
        "progress":     j.Progress,
        "message":      j.Message,
        "current_file": j.CurrentFile,
        "attempts":     j.Attempts,
        "params":       string(params),
        "errors":       string(errs),
        "converted":    string(conv),
        "created":      j.Created.Format(time.RFC3339Nano),
    }
    if j.Start != nil { m["start"] = j.Start.Format(time.RFC3339Nano) }
    if j.End != nil { m["end"] = j.End.Format(time.RFC3339Nano) }
    return m
}

func jobFromHash(id string, res map[string]string) (Job, error) {
    j := Job{ID: id, Status: res["status"], Message: res["message"], CurrentFile: res["current_file"]}
    j.Progress, _ = strconv.Atoi(res["progress"])
    j.Attempts, _ = strconv.Atoi(res["attempts"])
    var p jobParams
    if v := res["params"]; v != "" {
        if err := json.Unmarshal([]byte(v), &p); err != nil { return j, fmt.Errorf("decode job params: %w", err) }
    }
    j.FileIDs, j.Parser, j.Merge, j.OutputFormat = p.FileIDs, p.Parser, p.Merge, p.OutputFormat
    if v := res["errors"]; v != "" { _ = json.Unmarshal([]byte(v), &j.Errors) }
    if v := res["converted"]; v != "" { _ = json.Unmarshal([]byte(v), &j.Converted) }
    if t, err := time.Parse(time.RFC3339Nano, res["created"]); err == nil { j.Created = t }
    if v := res["start"]; v != "" {
        if t, err := time.Parse(time.RFC3339Nano, v); err == nil { j.Start = &t }
    }
    if v := res["end"]; v != "" {
        if t, err := time.Parse(time.RFC3339Nano, v); err == nil { j.End = &t }
    }
    return j, nil
}
