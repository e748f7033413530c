// Package importer moves data into the CSV store: the one-way Firestore
// export and the bulk user roster import.
package importer

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/sanathkumar-crypto/issue-tracker/internal/models"
	"github.com/sanathkumar-crypto/issue-tracker/internal/repository/csvstore"
	"github.com/sanathkumar-crypto/issue-tracker/internal/repository/firebase"
)

// subcollection fetch + attachment download parallelism
const importWorkers = 8

type Summary struct {
	Issues      int
	Comments    int
	History     int
	Attachments int
	Users       int
	Hospitals   int
	TeamMembers int
	Downloaded  int
	Failed      int
}

type FirebaseImporter struct {
	src   *firebase.Client
	dst   *csvstore.Store
	httpc *http.Client
	log   zerolog.Logger
}

func NewFirebaseImporter(src *firebase.Client, dst *csvstore.Store, log zerolog.Logger) *FirebaseImporter {
	return &FirebaseImporter{
		src:   src,
		dst:   dst,
		httpc: &http.Client{Timeout: 30 * time.Second},
		log:   log,
	}
}

// Run exports every collection into the CSV layout. Attachment payload
// downloads fail soft: each failure is counted and logged, not fatal.
func (imp *FirebaseImporter) Run(ctx context.Context) (Summary, error) {
	var sum Summary

	issues, err := imp.src.Issues(ctx)
	if err != nil {
		return sum, err
	}
	if err := imp.dst.WriteIssuesRaw(issues); err != nil {
		return sum, err
	}
	sum.Issues = len(issues)
	imp.log.Info().Int("count", len(issues)).Msg("exported issues")

	var comments, history, attachments atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(importWorkers)
	for _, is := range issues {
		issueID := is.ID
		g.Go(func() error {
			cs, err := imp.src.Comments(gctx, issueID)
			if err != nil {
				return err
			}
			if err := imp.dst.WriteCommentsRaw(issueID, cs); err != nil {
				return err
			}
			comments.Add(int64(len(cs)))

			hs, err := imp.src.History(gctx, issueID)
			if err != nil {
				return err
			}
			if err := imp.dst.WriteHistoryRaw(issueID, hs); err != nil {
				return err
			}
			history.Add(int64(len(hs)))

			as, err := imp.src.Attachments(gctx, issueID)
			if err != nil {
				return err
			}
			if err := imp.dst.WriteAttachmentsRaw(issueID, as); err != nil {
				return err
			}
			attachments.Add(int64(len(as)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return sum, err
	}
	sum.Comments = int(comments.Load())
	sum.History = int(history.Load())
	sum.Attachments = int(attachments.Load())
	imp.log.Info().
		Int("comments", sum.Comments).
		Int("history", sum.History).
		Int("attachments", sum.Attachments).
		Msg("exported issue subcollections")

	downloaded, failed := imp.downloadAttachments(ctx, issues)
	sum.Downloaded = downloaded
	sum.Failed = failed

	users, err := imp.src.Users(ctx)
	if err != nil {
		return sum, err
	}
	if err := imp.dst.WriteUsersRaw(users); err != nil {
		return sum, err
	}
	sum.Users = len(users)

	hospitals, err := imp.src.Hospitals(ctx)
	if err != nil {
		return sum, err
	}
	if err := imp.dst.WriteHospitalsRaw(hospitals); err != nil {
		return sum, err
	}
	sum.Hospitals = len(hospitals)

	team, err := imp.src.TeamMembers(ctx)
	if err != nil {
		return sum, err
	}
	if err := imp.dst.WriteTeamMembersRaw(team); err != nil {
		return sum, err
	}
	sum.TeamMembers = len(team)

	imp.log.Info().
		Int("users", sum.Users).
		Int("hospitals", sum.Hospitals).
		Int("team_members", sum.TeamMembers).
		Msg("export complete")
	return sum, nil
}

func (imp *FirebaseImporter) downloadAttachments(ctx context.Context, issues []models.Issue) (downloaded, failed int) {
	var ok, bad atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(importWorkers)
	for _, is := range issues {
		issueID := is.ID
		g.Go(func() error {
			as, err := imp.dst.AttachmentsRaw(issueID)
			if err != nil {
				return err
			}
			for _, a := range as {
				if a.DownloadURL == "" || a.FileName == "" {
					continue
				}
				if err := imp.fetchFile(gctx, issueID, a); err != nil {
					bad.Add(1)
					imp.log.Warn().Err(err).
						Str("issue", issueID).
						Str("file", a.FileName).
						Msg("attachment download failed")
					continue
				}
				ok.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		imp.log.Warn().Err(err).Msg("attachment download pass aborted")
	}
	return int(ok.Load()), int(bad.Load())
}

func (imp *FirebaseImporter) fetchFile(ctx context.Context, issueID string, a models.Attachment) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.DownloadURL, nil)
	if err != nil {
		return err
	}
	resp, err := imp.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	return imp.dst.SaveFile(ctx, issueID, filepath.Base(a.FileName), resp.Body)
}

// EnsureCredentials gives the same early, actionable failure the old import
// script did when the service-account file is missing.
func EnsureCredentials(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("firebase credentials file not found: %s (set FIREBASE_CREDENTIALS_PATH or place the service-account key there)", path)
		}
		return err
	}
	return nil
}
