package images

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/hpcadm/hpcadm/internal/gateway"
	"github.com/hpcadm/hpcadm/internal/sessions"
	"github.com/hpcadm/hpcadm/internal/wait"
)

// BuildMember drives one image build through a dependency group wait.
//
// Begin submits the build, resolving the base image from an explicit ID or
// from the resultant image of a dependency that built it. Completed polls
// the job; when the build becomes ready and a configuration is set, it
// chains a configuration session and keeps reporting not-done until that
// session completes. A build error or a failed session is a member-local
// failure.
type BuildMember struct {
	wait.DependencySet

	ImageName     string
	BaseImageID   string // explicit base; empty when derived from a dependency
	Configuration string // optional configuration applied once the build is ready

	images   *Client
	sessions *sessions.Client

	jobID     string
	result    string
	session   *sessions.SessionMember
	succeeded bool
}

// NewBuildMember builds a member that will build image name from base,
// then optionally run configuration against the result.
func NewBuildMember(images *Client, sess *sessions.Client, name, baseImageID, configuration string) *BuildMember {
	return &BuildMember{
		ImageName:     name,
		BaseImageID:   baseImageID,
		Configuration: configuration,
		images:        images,
		sessions:      sess,
	}
}

// Name implements wait.Member.
func (m *BuildMember) Name() string { return m.ImageName }

// ResultantImageID returns the built image's ID, empty until the build is
// ready. Dependent members read it to resolve their base image.
func (m *BuildMember) ResultantImageID() string { return m.result }

// Begin implements wait.DependencyMember: it resolves the base image and
// submits the build. It runs only after every dependency has completed
// successfully, so a dependency's resultant image is available here.
func (m *BuildMember) Begin(ctx context.Context) error {
	base := m.BaseImageID
	if base == "" {
		for _, dep := range m.Dependencies() {
			b, ok := dep.(*BuildMember)
			if !ok {
				continue
			}
			if id := b.ResultantImageID(); id != "" {
				base = id
				break
			}
		}
	}
	if base == "" {
		return fmt.Errorf("no base image available for %s", m.ImageName)
	}

	job, err := m.images.SubmitBuild(ctx, BuildRequest{Name: m.ImageName, BaseImageID: base})
	if err != nil {
		return fmt.Errorf("submitting build of %s: %w", m.ImageName, err)
	}
	m.jobID = job.ID
	return nil
}

// Completed implements wait.Member.
func (m *BuildMember) Completed(ctx context.Context) (bool, error) {
	// The configure phase: the build is done, a session is running.
	if m.session != nil {
		return m.pollSession(ctx)
	}

	job, err := m.images.GetJob(ctx, m.jobID)
	if err != nil {
		var status *gateway.StatusError
		if errors.As(err, &status) && status.Code == http.StatusNotFound {
			return false, wait.Failf("build job %s for %s no longer exists", m.jobID, m.ImageName)
		}
		return false, err
	}

	switch job.Status {
	case JobError:
		return false, wait.Failf("build of %s failed: %s", m.ImageName, job.Error)
	case JobReady:
		m.result = job.ResultantImageID
		if m.Configuration == "" {
			m.succeeded = true
			return true, nil
		}
		// Chain the configuration session and stay pending until it
		// finishes.
		if err := m.startSession(ctx); err != nil {
			return false, err
		}
		return false, nil
	default:
		// pending or building
		return false, nil
	}
}

// startSession creates the chained configuration session against the
// resultant image.
func (m *BuildMember) startSession(ctx context.Context) error {
	name := fmt.Sprintf("%s-configure", m.ImageName)
	_, err := m.sessions.CreateSession(ctx, sessions.SessionRequest{
		Name:          name,
		Configuration: m.Configuration,
		ImageID:       m.result,
	})
	if err != nil {
		return fmt.Errorf("starting configuration of %s: %w", m.ImageName, err)
	}
	m.session = sessions.NewSessionMember(m.sessions, name)
	return nil
}

// pollSession checks the chained session, converting an unsuccessful
// session into a member-local failure.
func (m *BuildMember) pollSession(ctx context.Context) (bool, error) {
	done, err := m.session.Completed(ctx)
	if err != nil || !done {
		return false, err
	}
	if !m.session.Succeeded() {
		return false, wait.Failf("configuration of %s failed", m.ImageName)
	}
	m.succeeded = true
	return true, nil
}

// Succeeded implements wait.Member.
func (m *BuildMember) Succeeded() bool { return m.succeeded }
