// Package dispatch is the orchestrating core: it turns one incoming bot
// command into at most one admitted task handed to exactly one engine, and
// drives multi/bulk chains through the scheduler.
package dispatch

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"telegram-mirror-bot/internal/args"
	"telegram-mirror-bot/internal/bot"
	"telegram-mirror-bot/internal/bulk"
	"telegram-mirror-bot/internal/config"
	"telegram-mirror-bot/internal/engine"
	"telegram-mirror-bot/internal/engine/videoengine"
	"telegram-mirror-bot/internal/links"
	"telegram-mirror-bot/internal/logutils"
	"telegram-mirror-bot/internal/resolve"
	"telegram-mirror-bot/internal/task"
)

const helpText = "Send a link, magnet or torrent file to download.\n" +
	"Reply to a message carrying media or a link, or use -b with a list of links."

const bulkHelpText = "Reply to a text file or a message containing links separated by new lines."

// Document describes a Telegram file attachment.
type Document struct {
	FileID   string
	FileName string
	MimeType string
}

// ReplyInfo is the message the command replies to, if any.
type ReplyInfo struct {
	Text     string
	Document *Document
}

// Request is one incoming command, either typed by a user or synthesized by
// a multi/bulk chain.
type Request struct {
	ChatID          int64
	MessageID       int
	UserID          int64
	Username        string
	Mention         string
	SenderChatTitle string
	TagOverride     string
	Tokens          []string
	IsLeech         bool
	IsQbit          bool
	GroupID         string
	Bulk            []string
	Reply           *ReplyInfo
}

// TelegramResolver fetches the content a t.me link points at.
type TelegramResolver interface {
	ResolveMessage(ctx context.Context, link string) (text string, doc *Document, err error)
}

// StorageBrowser lets the user interactively pick a remote-storage path. A
// returned string that is not a valid path is itself the error message to
// show.
type StorageBrowser interface {
	Browse(ctx context.Context, userID int64) (string, error)
}

// Spawner accepts follow-up submissions for deferred dispatch.
type Spawner interface {
	Enqueue(Spawn)
}

type Deps struct {
	Config    *config.Config
	Bot       bot.Service
	Registry  *task.Registry
	Admission *task.AdmissionController
	Engines   *engine.Registry
	Listener  task.ListenerDeps
	Prober    *resolve.Prober
	Resolver  resolve.DirectLinkResolver
	Telegram  TelegramResolver
	Browser   StorageBrowser
	Spawner   Spawner
}

type Dispatcher struct {
	cfg       *config.Config
	bot       bot.Service
	registry  *task.Registry
	admission *task.AdmissionController
	engines   *engine.Registry
	listener  task.ListenerDeps
	prober    *resolve.Prober
	resolver  resolve.DirectLinkResolver
	telegram  TelegramResolver
	browser   StorageBrowser
	spawner   Spawner
}

func NewDispatcher(deps Deps) *Dispatcher {
	return &Dispatcher{
		cfg:       deps.Config,
		bot:       deps.Bot,
		registry:  deps.Registry,
		admission: deps.Admission,
		engines:   deps.Engines,
		listener:  deps.Listener,
		prober:    deps.Prober,
		resolver:  deps.Resolver,
		telegram:  deps.Telegram,
		browser:   deps.Browser,
		spawner:   deps.Spawner,
	}
}

// Dispatch runs every admission gate for one request. Each gate failure is
// reported to the user and aborts without leaving a partial task registered.
// The returned error mirrors what was reported; transport callers may ignore
// it.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) error {
	if d.cfg.DeleteLinks {
		defer func() {
			_ = d.bot.DeleteMessage(req.ChatID, req.MessageID)
		}()
	}

	ta := args.Resolve(args.Parse(req.Tokens, args.NewSchema()))
	gid := uuid.NewString()

	groupID := req.GroupID
	if ta.SameDir != "" && groupID == "" && !ta.Bulk {
		total := ta.Multi
		if total < 1 {
			total = 1
		}
		groupID = d.registry.NewGroup(ta.SameDir, total)
	}

	// Siblings are scheduled before this task's own validation so a failure
	// below does not strand the rest of the chain. A bulk head chains itself
	// through the expansion, so its multiplicity is not spawned here.
	if ta.Multi > 1 && !ta.Bulk {
		d.spawner.Enqueue(Spawn{
			Request: d.followUp(req, ta, groupID),
			Delay:   d.cfg.Spawn.MultiDelay,
		})
	}

	joined := false
	if groupID != "" && !ta.Bulk {
		// Seeding is incompatible with grouped-folder delivery.
		ta.Seed, ta.Ratio, ta.SeedTime = false, "", ""
		d.registry.JoinGroup(groupID, gid)
		joined = true
	}

	fail := func(err error, userMsg string) error {
		if joined {
			if finalize, name := d.registry.LeaveGroup(groupID, gid); finalize {
				d.listener.Finalizer.FinalizeGroup(ctx, name, req.IsLeech)
			}
		}
		if userMsg == "" {
			userMsg = err.Error()
		}
		if _, sendErr := d.bot.ReplyMessage(req.ChatID, req.MessageID, userMsg); sendErr != nil {
			logutils.Log.WithError(sendErr).Warn("Failed to report dispatch error")
		}
		return err
	}

	if ta.Bulk {
		if err := d.expandBulk(ctx, req, ta); err != nil {
			return fail(err, bulkHelpText+"\n"+err.Error())
		}
		return nil
	}

	tag := requesterTag(req)

	link := strings.TrimSpace(ta.Link)
	var doc *Document

	if links.IsTelegramLink(link) {
		text, resolved, err := d.telegram.ResolveMessage(ctx, link)
		if err != nil {
			return fail(fmt.Errorf("failed to resolve telegram link: %w", err), "")
		}
		if resolved != nil {
			doc = resolved
			link = ""
		} else {
			link = firstLine(text)
		}
	}

	if link == "" && doc == nil && req.Reply != nil {
		adopted, adoptedDoc, err := d.adoptReply(ctx, req.Reply)
		if err != nil {
			return fail(err, "")
		}
		link, doc = adopted, adoptedDoc
	}

	if doc == nil && !links.IsURL(link) && !links.IsMagnet(link) && !links.IsRclonePath(link) && !fileExists(link) {
		return fail(errors.New("no downloadable source found"), helpText)
	}

	if reasons := d.admission.Check(ctx, req.UserID, req.IsLeech); len(reasons) > 0 {
		return fail(errors.New("task rejected by quota"), quotaReport(tag, reasons))
	}

	kind := links.Classify(link, "", "")

	if kind == links.KindShare {
		resolved, err := d.resolver.Resolve(ctx, link)
		if err != nil {
			return fail(fmt.Errorf("failed to resolve share link: %w", err), "")
		}
		link = resolved
		kind = links.Classify(link, "", "")
	}

	if doc == nil && kind == links.KindDirectURL && !req.IsQbit &&
		!strings.HasSuffix(link, ".torrent") && !videoengine.IsVideoLink(link) {
		resolved, err := d.resolveIndirect(ctx, req, link)
		if err != nil {
			return fail(err, "")
		}
		link = resolved
	}

	upload := ta.Upload
	if link == links.BrowseSentinel || upload == links.BrowseSentinel {
		var err error
		if link, upload, err = d.browsePaths(ctx, req.UserID, link, upload); err != nil {
			return fail(err, "")
		}
	}

	if !req.IsLeech {
		resolved, err := d.resolveDestination(req.UserID, upload)
		if err != nil {
			return fail(err, "")
		}
		upload = resolved
	}

	l := task.NewListener(gid, d.listener)
	l.UserID = req.UserID
	l.ChatID = req.ChatID
	l.MessageID = req.MessageID
	l.Tag = tag
	l.Source = link
	l.Name = ta.Name
	l.Upload = upload
	l.RcFlags = ta.RcFlags
	l.IsLeech = req.IsLeech
	l.IsQbit = req.IsQbit
	l.Select = ta.Select
	l.Seed = ta.Seed
	l.Compress = ta.Compress
	l.Extract = ta.Extract
	l.Join = ta.Join
	l.GroupID = groupID
	if doc != nil {
		l.Source = doc.FileName
	}

	engineKind, dl, err := d.route(req, ta, link, doc, groupID, gid)
	if err != nil {
		return fail(err, "")
	}
	eng := d.engines.Get(engineKind)
	if eng == nil {
		return fail(fmt.Errorf("no engine available for %s sources", engineKind), "")
	}

	// The advisory check above ran before slow gates; the in-flight limits
	// are re-verified under the same lock that performs the insert.
	if reasons := d.admission.Register(l); len(reasons) > 0 {
		return fail(errors.New("task rejected by quota"), quotaReport(tag, reasons))
	}
	l.Start()

	if _, err := d.bot.ReplyMessage(req.ChatID, req.MessageID, fmt.Sprintf("Task started\ncc: %s", tag)); err != nil {
		logutils.Log.WithError(err).Warn("Failed to acknowledge task start")
	}
	logutils.Log.WithField("gid", gid).Infof("Dispatching %s task for user %d", engineKind, req.UserID)

	go eng.AddDownload(l.Context(), dl, l)
	return nil
}

// followUp builds the next link of a multi/bulk chain: multiplicity
// decremented, and for bulk chains the next pending link substituted.
func (d *Dispatcher) followUp(req Request, ta args.TaskArgs, groupID string) Request {
	next := req
	next.GroupID = groupID
	next.Tokens = setMulti(req.Tokens, ta.Multi-1)
	if len(req.Bulk) > 0 {
		next.Tokens = replaceLink(next.Tokens, req.Bulk[0])
		next.Bulk = req.Bulk[1:]
	}
	return next
}

// expandBulk turns a bulk submission into the head of a self-chaining
// multi command. The current invocation never becomes a task itself.
func (d *Dispatcher) expandBulk(ctx context.Context, req Request, ta args.TaskArgs) error {
	var source string
	switch {
	case req.Reply != nil && req.Reply.Document != nil:
		path, err := d.bot.DownloadDocument(ctx, req.Reply.Document.FileID, os.TempDir(), req.Reply.Document.FileName)
		if err != nil {
			return fmt.Errorf("failed to fetch bulk attachment: %w", err)
		}
		defer os.Remove(path)
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read bulk attachment: %w", err)
		}
		source = string(data)
	case req.Reply != nil:
		source = req.Reply.Text
	}

	list, err := bulk.Extract(source, ta.BulkFrom, ta.BulkTo)
	if err != nil {
		return err
	}

	groupID := req.GroupID
	if ta.SameDir != "" && groupID == "" {
		groupID = d.registry.NewGroup(ta.SameDir, len(list))
	}

	next := req
	next.GroupID = groupID
	next.Bulk = list[1:]
	next.Reply = nil
	next.Tokens = removeFlag(req.Tokens, args.FlagBulk)
	next.Tokens = setMulti(next.Tokens, len(list))
	next.Tokens = replaceLink(next.Tokens, list[0])

	d.spawner.Enqueue(Spawn{Request: next})
	return nil
}

// adoptReply takes the replied-to message as the task source. Torrent
// attachments are fetched immediately so the link points at a local file.
func (d *Dispatcher) adoptReply(ctx context.Context, reply *ReplyInfo) (string, *Document, error) {
	if doc := reply.Document; doc != nil {
		if links.IsTorrentFile(doc.FileName, doc.MimeType) {
			path, err := d.bot.DownloadDocument(ctx, doc.FileID, d.cfg.DownloadDir, doc.FileName)
			if err != nil {
				return "", nil, fmt.Errorf("failed to fetch torrent file: %w", err)
			}
			return path, nil, nil
		}
		return "", doc, nil
	}
	if first := firstLine(reply.Text); links.IsURL(first) || links.IsMagnet(first) {
		return first, nil, nil
	}
	return "", nil, nil
}

// resolveIndirect probes a generic URL; HTML and plain-text pages go through
// the direct-link resolver. Resolver errors without the fatal marker fall
// back to the original link.
func (d *Dispatcher) resolveIndirect(ctx context.Context, req Request, link string) (string, error) {
	if !d.prober.IsIndirect(ctx, link) {
		return link, nil
	}

	statusID, err := d.bot.ReplyMessage(req.ChatID, req.MessageID, "Processing link...")
	if err != nil {
		logutils.Log.WithError(err).Warn("Failed to send processing status")
	}
	defer func() {
		if statusID != 0 {
			_ = d.bot.DeleteMessage(req.ChatID, statusID)
		}
	}()

	resolved, err := d.resolver.Resolve(ctx, link)
	if err != nil {
		if resolve.IsFatal(err) {
			return "", err
		}
		logutils.Log.WithError(err).Debugf("No resolver for %s, downloading as-is", link)
		return link, nil
	}
	return resolved, nil
}

// browsePaths lets the user pick source and/or destination interactively.
func (d *Dispatcher) browsePaths(ctx context.Context, userID int64, link, upload string) (string, string, error) {
	pick := func() (string, error) {
		picked, err := d.browser.Browse(ctx, userID)
		if err != nil {
			return "", err
		}
		if !links.IsRclonePath(picked) || picked == links.BrowseSentinel {
			return "", errors.New(picked)
		}
		return picked, nil
	}

	var err error
	if link == links.BrowseSentinel {
		if link, err = pick(); err != nil {
			return "", "", err
		}
	}
	if upload == links.BrowseSentinel {
		if upload, err = pick(); err != nil {
			return "", "", err
		}
	}
	return link, upload, nil
}

// resolveDestination validates a mirror task's upload target, applying the
// configured default when unset.
func (d *Dispatcher) resolveDestination(userID int64, upload string) (string, error) {
	if upload == "" {
		if upload = d.cfg.DefaultUpload; upload == "" {
			upload = "gd"
		}
	}
	if upload == "rc" {
		if d.cfg.RclonePath == "" {
			return "", errors.New("no default remote-storage path configured; set rclone_path or pass -up")
		}
		upload = d.cfg.RclonePath
	}

	switch {
	case upload == "gd":
		if d.cfg.GDriveID == "" {
			return "", errors.New("no cloud-drive root configured; set a drive id or pass -up")
		}
	case upload == "ddl":
		if d.cfg.Storage.Bucket == "" {
			return "", errors.New("no storage bucket configured for ddl uploads")
		}
	case strings.HasPrefix(upload, links.ProfilePrefix):
		conf := d.cfg.UserRcloneConf(userID)
		if !fileExists(conf) {
			return "", fmt.Errorf("no remote-storage credentials found for your profile (%s)", filepath.Base(conf))
		}
		if !links.IsRclonePath(upload) {
			return "", fmt.Errorf("invalid remote-storage destination %q", upload)
		}
	case links.IsRclonePath(upload):
		if !fileExists(d.cfg.RcloneConf) {
			return "", errors.New("no default remote-storage credentials configured")
		}
	default:
		return "", fmt.Errorf("invalid upload destination %q", upload)
	}
	return upload, nil
}

// route picks the engine kind and builds its download order.
func (d *Dispatcher) route(req Request, ta args.TaskArgs, link string, doc *Document, groupID, gid string) (engine.Kind, *engine.Download, error) {
	dl := &engine.Download{
		GID:  gid,
		Link: link,
		Name: ta.Name,
		Path: d.downloadPath(groupID, gid),
	}

	if doc != nil {
		dl.FileID = doc.FileID
		dl.FileName = doc.FileName
		return engine.KindTelegram, dl, nil
	}

	if links.IsRclonePath(link) {
		conf := d.cfg.RcloneConf
		if strings.HasPrefix(link, links.ProfilePrefix) {
			conf = d.cfg.UserRcloneConf(req.UserID)
			if !fileExists(conf) {
				return 0, nil, fmt.Errorf("no remote-storage credentials found for your profile (%s)", filepath.Base(conf))
			}
			dl.Link = strings.TrimPrefix(link, links.ProfilePrefix)
		}
		if !fileExists(conf) {
			return 0, nil, errors.New("no default remote-storage credentials configured")
		}
		dl.ConfigPath = conf
		return engine.KindRemote, dl, nil
	}

	kind := links.Classify(link, "", "")
	switch {
	case kind == links.KindCloudDrive:
		return engine.KindCloudDrive, dl, nil
	case kind == links.KindCloudBackup:
		return engine.KindCloudBackup, dl, nil
	case kind == links.KindMagnet, strings.HasSuffix(link, ".torrent"), fileExists(link):
		dl.Select = ta.Select
		if ta.Ratio != "" {
			if ratio, err := strconv.ParseFloat(ta.Ratio, 64); err == nil {
				dl.Ratio = ratio
			}
		}
		if ta.SeedTime != "" {
			if minutes, err := strconv.Atoi(ta.SeedTime); err == nil {
				dl.SeedTime = minutes
			}
		}
		return engine.KindTorrent, dl, nil
	case videoengine.IsVideoLink(link):
		return engine.KindVideo, dl, nil
	default:
		if ta.AuthUser != "" {
			creds := ta.AuthUser + ":" + ta.AuthPass
			dl.AuthHeader = "Basic " + base64.StdEncoding.EncodeToString([]byte(creds))
		}
		return engine.KindDirect, dl, nil
	}
}

// downloadPath is per task, except grouped tasks share their folder.
func (d *Dispatcher) downloadPath(groupID, gid string) string {
	if groupID != "" {
		if name := d.registry.GroupName(groupID); name != "" {
			return filepath.Join(d.cfg.DownloadDir, name)
		}
	}
	return filepath.Join(d.cfg.DownloadDir, gid)
}

// requesterTag prefers an explicit override, then the channel title, then
// the user's handle, then the mention string.
func requesterTag(req Request) string {
	switch {
	case req.TagOverride != "":
		return req.TagOverride
	case req.SenderChatTitle != "":
		return req.SenderChatTitle
	case req.Username != "":
		return "@" + req.Username
	default:
		return req.Mention
	}
}

func quotaReport(tag string, reasons []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hey %s, your task was rejected:", tag)
	for i, reason := range reasons {
		fmt.Fprintf(&b, "\n%d. %s", i+1, reason)
	}
	return b.String()
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(line)
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}
