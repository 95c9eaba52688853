package local

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/peterbourgon/diskv/v3"

	"OnTrack/config"
)

// 设备本地的键值快照存储。账本和衍生状态在这里做尽力而为的持久化，
// 正确性不依赖它：丢失快照只意味着下次启动走一次全量远端拉取。

var (
	d        *diskv.Diskv
	once     sync.Once
	initErr  error
	dirtyMu  sync.Mutex
	dirty    map[string][]byte
	notifyCh chan struct{}
)

func Init() error {
	once.Do(func() {
		basePath := config.Cfg.LocalStorePath
		if basePath == "" {
			basePath = "./data/ledger"
		}

		d = diskv.New(diskv.Options{
			BasePath:     basePath,
			CacheSizeMax: 1024 * 1024, // 1MB
		})

		dirty = make(map[string][]byte)
		notifyCh = make(chan struct{}, 1)

		go writeLoop()
	})

	return initErr
}

// Save 序列化并排队写入，立即返回。落盘由后台协程完成。
func Save(key string, value interface{}) error {
	if d == nil {
		return fmt.Errorf("local store is not initialized")
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}

	dirtyMu.Lock()
	dirty[key] = data
	dirtyMu.Unlock()

	select {
	case notifyCh <- struct{}{}:
	default:
	}

	return nil
}

// Load 读取并反序列化一个键，键不存在返回 (false, nil)。
func Load(key string, target interface{}) (bool, error) {
	if d == nil {
		return false, fmt.Errorf("local store is not initialized")
	}

	if !d.Has(key) {
		return false, nil
	}

	data, err := d.Read(key)
	if err != nil {
		return false, err
	}

	if err := json.Unmarshal(data, target); err != nil {
		return false, fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}

	return true, nil
}

// Flush 同步写出所有排队中的条目，进程退出前调用。
func Flush() error {
	if d == nil {
		return nil
	}

	dirtyMu.Lock()
	pending := dirty
	dirty = make(map[string][]byte)
	dirtyMu.Unlock()

	var firstErr error
	for key, data := range pending {
		if err := d.Write(key, data); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}

func writeLoop() {
	for range notifyCh {
		// 小窗口合并连续写入
		time.Sleep(200 * time.Millisecond)
		_ = Flush()
	}
}
