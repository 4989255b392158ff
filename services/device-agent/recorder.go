package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// Recorder ukládá lokální kopii toho, co agent posílá do backendu.
// Slouží jako historie a "live" stav pro případ, že backend neběží.
type Recorder interface {
	RecordSensorValue(ctx context.Context, v SensorValue) error
	RecordActuatorStatus(ctx context.Context, s ActuatorStatus) error
}

// MultiRecorder rozešle záznam do všech recorderů. Chyba jednoho nezastaví ostatní.
type MultiRecorder []Recorder

func (m MultiRecorder) RecordSensorValue(ctx context.Context, v SensorValue) error {
	var errs []error
	for _, r := range m {
		if err := r.RecordSensorValue(ctx, v); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m MultiRecorder) RecordActuatorStatus(ctx context.Context, s ActuatorStatus) error {
	var errs []error
	for _, r := range m {
		if err := r.RecordActuatorStatus(ctx, s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// PostgresRecorder zapisuje historii do TimescaleDB (Cold Path).
// Čas záznamu je čas zápisu v UTC, timestamp zařízení může být jen uptime.
type PostgresRecorder struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewPostgresRecorder vytvoří pool a ověří spojení.
func NewPostgresRecorder(ctx context.Context, url string) (*PostgresRecorder, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("chyba konfigurace DB: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("DB není dostupná: %w", err)
	}
	return &PostgresRecorder{pool: pool, now: time.Now}, nil
}

func (r *PostgresRecorder) RecordSensorValue(ctx context.Context, v SensorValue) error {
	query := `INSERT INTO sensor_data (time, sensor_id, value, device_timestamp) VALUES ($1, $2, $3, $4)`
	if _, err := r.pool.Exec(ctx, query, r.now().UTC(), v.IDSensor, v.Value, v.Timestamp); err != nil {
		return fmt.Errorf("chyba insertu do PG: %w", err)
	}
	return nil
}

func (r *PostgresRecorder) RecordActuatorStatus(ctx context.Context, s ActuatorStatus) error {
	query := `INSERT INTO actuator_data (time, actuator_id, status, status_binary, device_timestamp) VALUES ($1, $2, $3, $4, $5)`
	if _, err := r.pool.Exec(ctx, query, r.now().UTC(), s.IDActuator, s.Status, s.StatusBinary, s.Timestamp); err != nil {
		return fmt.Errorf("chyba insertu do PG: %w", err)
	}
	return nil
}

func (r *PostgresRecorder) Close() {
	r.pool.Close()
}

// ValkeyRecorder drží poslední hodnoty (Hot Path), klíče stejné jako persister:
// "sensor:last:{id}" a "actuator:last:{id}".
type ValkeyRecorder struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewValkeyRecorder se připojí a pingne server.
func NewValkeyRecorder(ctx context.Context, addr string) (*ValkeyRecorder, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("Valkey není dostupný: %w", err)
	}
	// Expirace 24h, aby zmizely hodnoty mrtvých senzorů.
	return &ValkeyRecorder{rdb: rdb, ttl: 24 * time.Hour}, nil
}

func (r *ValkeyRecorder) RecordSensorValue(ctx context.Context, v SensorValue) error {
	key := fmt.Sprintf("sensor:last:%d", v.IDSensor)
	if err := r.rdb.Set(ctx, key, v.Value, r.ttl).Err(); err != nil {
		return fmt.Errorf("chyba update Valkey: %w", err)
	}
	return nil
}

func (r *ValkeyRecorder) RecordActuatorStatus(ctx context.Context, s ActuatorStatus) error {
	key := fmt.Sprintf("actuator:last:%d", s.IDActuator)
	if err := r.rdb.Set(ctx, key, s.Status, r.ttl).Err(); err != nil {
		return fmt.Errorf("chyba update Valkey: %w", err)
	}
	return nil
}

func (r *ValkeyRecorder) Close() error {
	return r.rdb.Close()
}
