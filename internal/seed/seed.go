// Package seed загружает пользователей из YAML-файла: учётные записи ведутся вне сервиса.
package seed

import (
	"context"
	"eofficeTracker/internal/logger"
	"eofficeTracker/internal/models/actor"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type ActorSaver interface {
	Save(context.Context, *actor.Actor) error
}

type File struct {
	Actors []ActorEntry `yaml:"actors"`
}

type ActorEntry struct {
	ID          string        `yaml:"id"`
	Username    string        `yaml:"username"`
	Email       string        `yaml:"email"`
	IsSuperuser bool          `yaml:"is_superuser"`
	Profile     *ProfileEntry `yaml:"profile"`
}

type ProfileEntry struct {
	IsManager   bool   `yaml:"is_manager"`
	PhoneNumber string `yaml:"phone_number"`
}

func Parse(r io.Reader) ([]*actor.Actor, error) {
	var f File
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&f); err != nil {
		if err == io.EOF {
			return []*actor.Actor{}, nil
		}
		return nil, fmt.Errorf("разбор файла пользователей: %w", err)
	}

	res := make([]*actor.Actor, 0, len(f.Actors))
	for i, e := range f.Actors {
		a, err := e.toActor()
		if err != nil {
			return nil, fmt.Errorf("пользователь #%d: %w", i+1, err)
		}
		res = append(res, a)
	}
	return res, nil
}

func (e ActorEntry) toActor() (*actor.Actor, error) {
	username := strings.TrimSpace(e.Username)
	if username == "" {
		return nil, fmt.Errorf("не задан username")
	}

	id, err := uuid.Parse(e.ID)
	if err != nil {
		return nil, fmt.Errorf("некорректный id %q: %w", e.ID, err)
	}

	a := &actor.Actor{
		ID:          id,
		Username:    username,
		Email:       strings.TrimSpace(e.Email),
		IsSuperuser: e.IsSuperuser,
	}
	if e.Profile != nil {
		a.Profile = &actor.Profile{
			IsManager:   e.Profile.IsManager,
			PhoneNumber: strings.TrimSpace(e.Profile.PhoneNumber),
		}
	}
	return a, nil
}

// LoadFile сохраняет всех пользователей из файла и возвращает их число.
func LoadFile(ctx context.Context, path string, saver ActorSaver) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("не могу открыть %s: %w", path, err)
	}
	defer file.Close()

	actors, err := Parse(file)
	if err != nil {
		return 0, err
	}

	for _, a := range actors {
		if err := saver.Save(ctx, a); err != nil {
			return 0, fmt.Errorf("сохранение пользователя %s: %w", a.Username, err)
		}
	}

	logger.Info("Seed: Пользователи загружены", zap.String("path", path), zap.Int("count", len(actors)))
	return len(actors), nil
}
