package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

type client struct {
	baseURL     string
	submitToken string
	reviewToken string
	admin       bool
	httpClient  *http.Client
}

type submissionResp struct {
	ID            string `json:"id"`
	UserID        string `json:"userId"`
	Status        string `json:"status"`
	QualityScore  *int   `json:"qualityScore"`
	ApprovalTxRef string `json:"approvalTxRef"`
	RewardTxRef   string `json:"rewardTxRef"`
	RewardError   string `json:"rewardError"`
	RelayTxRef    string `json:"relayTxRef"`
}

type assessmentResp struct {
	Score           int      `json:"score"`
	Valid           bool     `json:"valid"`
	Issues          []string `json:"issues"`
	Recommendations []string `json:"recommendations"`
}

type relayStatsResp struct {
	Pending  int64 `json:"pending"`
	Delayed  int64 `json:"delayed"`
	InFlight int64 `json:"inFlight"`
	Failed   int64 `json:"failed"`
	Backlog  int64 `json:"backlog"`
}

type autoApproveResp struct {
	ConsideredCount int      `json:"consideredCount"`
	ApprovedCount   int      `json:"approvedCount"`
	FailedCount     int      `json:"failedCount"`
	ApprovedIDs     []string `json:"approvedIds"`
}

type ui struct {
	title func(a ...any) string
	ok    func(a ...any) string
	info  func(a ...any) string
	warn  func(a ...any) string
	err   func(a ...any) string
	dim   func(a ...any) string
}

type profile struct {
	BaseURL     string `yaml:"baseUrl"`
	SubmitToken string `yaml:"submitToken"`
	ReviewToken string `yaml:"reviewToken"`
	Admin       bool   `yaml:"admin"`
}

type cliConfig struct {
	CurrentProfile string             `yaml:"currentProfile"`
	Profiles       map[string]profile `yaml:"profiles"`
}

func newUI() *ui {
	return &ui{
		title: color.New(color.FgHiCyan, color.Bold).SprintFunc(),
		ok:    color.New(color.FgGreen, color.Bold).SprintFunc(),
		info:  color.New(color.FgCyan).SprintFunc(),
		warn:  color.New(color.FgYellow).SprintFunc(),
		err:   color.New(color.FgRed, color.Bold).SprintFunc(),
		dim:   color.New(color.FgHiBlack).SprintFunc(),
	}
}

func (c *client) request(method, path string, token string, body any) (int, []byte, error) {
	var buf *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, nil, err
		}
		buf = bytes.NewReader(b)
	} else {
		buf = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, c.baseURL+path, buf)
	if err != nil {
		return 0, nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if c.admin {
		req.Header.Set("X-Role", "ADMIN")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	out, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, out, nil
}

func main() {
	baseURL := getenv("CURATOR_BASE_URL", "http://localhost:8080")
	submitToken := getenv("CURATOR_SUBMIT_TOKEN", "")
	reviewToken := getenv("CURATOR_REVIEW_TOKEN", "")
	admin := getenvBool("CURATOR_ADMIN", isLocalURL(baseURL))
	profileName := getenv("CURATOR_PROFILE", "")
	ui := newUI()

	root := &cobra.Command{
		Use:   "curator",
		Short: "curator CLI",
		Long:  "curator CLI for data submissions, review, and relay operations.",
	}
	root.SetHelpTemplate(helpTemplate(ui))
	root.SilenceUsage = true

	root.PersistentFlags().StringVar(&baseURL, "base-url", baseURL, "Base URL for curator")
	root.PersistentFlags().StringVar(&submitToken, "submit-token", submitToken, "Submitter token")
	root.PersistentFlags().StringVar(&reviewToken, "review-token", reviewToken, "Reviewer token")
	root.PersistentFlags().BoolVar(&admin, "admin", admin, "Send X-Role: ADMIN (dev only)")
	root.PersistentFlags().StringVar(&profileName, "profile", profileName, "Config profile")

	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cfg, _, _ := loadConfig()
		active := resolveProfileName(profileName, cfg)
		prof := cfg.Profiles[active]

		flags := cmd.Flags()
		if !flags.Changed("base-url") {
			if v := strings.TrimSpace(os.Getenv("CURATOR_BASE_URL")); v != "" {
				baseURL = v
			} else if prof.BaseURL != "" {
				baseURL = prof.BaseURL
			}
		}
		if !flags.Changed("submit-token") {
			if v := strings.TrimSpace(os.Getenv("CURATOR_SUBMIT_TOKEN")); v != "" {
				submitToken = v
			} else if prof.SubmitToken != "" {
				submitToken = prof.SubmitToken
			}
		}
		if !flags.Changed("review-token") {
			if v := strings.TrimSpace(os.Getenv("CURATOR_REVIEW_TOKEN")); v != "" {
				reviewToken = v
			} else if prof.ReviewToken != "" {
				reviewToken = prof.ReviewToken
			}
		}
		if !flags.Changed("admin") {
			if v := strings.TrimSpace(os.Getenv("CURATOR_ADMIN")); v != "" {
				admin = getenvBool("CURATOR_ADMIN", admin)
			} else if prof.Admin {
				admin = true
			} else if isLocalURL(baseURL) {
				admin = true
			}
		}
		if !flags.Changed("profile") && profileName == "" && active != "" {
			profileName = active
		}
		return nil
	}

	root.AddCommand(initCmd(&profileName, ui))
	root.AddCommand(authCmd(&profileName, ui))
	root.AddCommand(submissionCmd(&baseURL, &submitToken, &reviewToken, &admin, ui))
	root.AddCommand(reviewCmd(&baseURL, &submitToken, &reviewToken, &admin, ui))
	root.AddCommand(relayCmd(&baseURL, &submitToken, &reviewToken, &admin, ui))
	root.AddCommand(userCmd(&baseURL, &submitToken, &reviewToken, &admin, ui))

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, ui.err("[ERROR]"), err.Error())
		os.Exit(1)
	}
}

func initCmd(profileName *string, ui *ui) *cobra.Command {
	var (
		baseURL     string
		submitToken string
		reviewToken string
		admin       bool
		noPrompt    bool
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize CLI config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, cfgPath, err := loadConfig()
			if err != nil {
				return err
			}
			active := resolveProfileName(*profileName, cfg)
			prof := cfg.Profiles[active]

			if baseURL == "" {
				baseURL = prof.BaseURL
			}
			if baseURL == "" {
				baseURL = "http://localhost:8080"
			}

			if !noPrompt {
				reader := bufio.NewReader(os.Stdin)
				baseURL = prompt(reader, "Base URL", baseURL)
				if submitToken == "" {
					submitToken = prompt(reader, "Submitter token (optional)", "")
				}
				if reviewToken == "" {
					reviewToken = prompt(reader, "Reviewer token (optional)", "")
				}
			}

			prof.BaseURL = strings.TrimSpace(baseURL)
			if submitToken != "" {
				prof.SubmitToken = strings.TrimSpace(submitToken)
			}
			if reviewToken != "" {
				prof.ReviewToken = strings.TrimSpace(reviewToken)
			}
			if cmd.Flags().Changed("admin") {
				prof.Admin = admin
			}

			if cfg.Profiles == nil {
				cfg.Profiles = map[string]profile{}
			}
			cfg.Profiles[active] = prof
			if cfg.CurrentProfile == "" || *profileName != "" {
				cfg.CurrentProfile = active
			}

			if err := saveConfig(cfg, cfgPath); err != nil {
				return err
			}
			fmt.Printf("%s Initialized profile '%s' at %s\n", ui.ok("[OK]"), active, cfgPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&baseURL, "base-url", "", "Base URL for curator")
	cmd.Flags().StringVar(&submitToken, "submit-token", "", "Submitter token")
	cmd.Flags().StringVar(&reviewToken, "review-token", "", "Reviewer token")
	cmd.Flags().BoolVar(&admin, "admin", false, "Set admin for profile")
	cmd.Flags().BoolVar(&noPrompt, "no-prompt", false, "Disable interactive prompts")
	return cmd
}

func authCmd(profileName *string, ui *ui) *cobra.Command {
	auth := &cobra.Command{
		Use:   "auth",
		Short: "Manage stored credentials",
	}

	var (
		submitToken string
		reviewToken string
		admin       bool
		clearAll    bool
	)

	set := &cobra.Command{
		Use:   "set",
		Short: "Store tokens in config",
		RunE: func(cmd *cobra.Command, args []string) error {
			if submitToken == "" && reviewToken == "" && !cmd.Flags().Changed("admin") {
				// Prompt for the submitter token so it never lands in
				// shell history.
				tok, err := promptSecret("Submitter token")
				if err != nil {
					return err
				}
				if tok == "" {
					return errors.New("provide --submit-token and/or --review-token (or --admin)")
				}
				submitToken = tok
			}
			cfg, cfgPath, err := loadConfig()
			if err != nil {
				return err
			}
			active := resolveProfileName(*profileName, cfg)
			prof := cfg.Profiles[active]
			if submitToken != "" {
				prof.SubmitToken = strings.TrimSpace(submitToken)
			}
			if reviewToken != "" {
				prof.ReviewToken = strings.TrimSpace(reviewToken)
			}
			if cmd.Flags().Changed("admin") {
				prof.Admin = admin
			}
			if cfg.Profiles == nil {
				cfg.Profiles = map[string]profile{}
			}
			cfg.Profiles[active] = prof
			if cfg.CurrentProfile == "" || *profileName != "" {
				cfg.CurrentProfile = active
			}
			if err := saveConfig(cfg, cfgPath); err != nil {
				return err
			}
			fmt.Printf("%s Credentials updated for '%s'\n", ui.ok("[OK]"), active)
			return nil
		},
	}
	set.Flags().StringVar(&submitToken, "submit-token", "", "Submitter token")
	set.Flags().StringVar(&reviewToken, "review-token", "", "Reviewer token")
	set.Flags().BoolVar(&admin, "admin", false, "Set admin for profile")

	show := &cobra.Command{
		Use:   "show",
		Short: "Show stored credentials (masked)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			active := resolveProfileName(*profileName, cfg)
			prof := cfg.Profiles[active]
			fmt.Printf("%s Profile: %s\n", ui.title("curator"), active)
			fmt.Printf("%s Base URL:     %s\n", ui.info("•"), emptyOr(prof.BaseURL, "<unset>"))
			fmt.Printf("%s Submit token: %s\n", ui.info("•"), maskToken(prof.SubmitToken))
			fmt.Printf("%s Review token: %s\n", ui.info("•"), maskToken(prof.ReviewToken))
			fmt.Printf("%s Admin:        %v\n", ui.info("•"), prof.Admin)
			return nil
		},
	}

	clear := &cobra.Command{
		Use:   "clear",
		Short: "Clear stored tokens",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, cfgPath, err := loadConfig()
			if err != nil {
				return err
			}
			active := resolveProfileName(*profileName, cfg)
			prof := cfg.Profiles[active]

			if clearAll || (!cmd.Flags().Changed("submit") && !cmd.Flags().Changed("review")) {
				prof.SubmitToken = ""
				prof.ReviewToken = ""
			} else {
				if cmd.Flags().Changed("submit") {
					prof.SubmitToken = ""
				}
				if cmd.Flags().Changed("review") {
					prof.ReviewToken = ""
				}
			}
			cfg.Profiles[active] = prof
			if err := saveConfig(cfg, cfgPath); err != nil {
				return err
			}
			fmt.Printf("%s Tokens cleared for '%s'\n", ui.ok("[OK]"), active)
			return nil
		},
	}
	clear.Flags().Bool("submit", false, "Clear submitter token")
	clear.Flags().Bool("review", false, "Clear reviewer token")
	clear.Flags().BoolVar(&clearAll, "all", false, "Clear all tokens")

	auth.AddCommand(set, show, clear)
	return auth
}

func submissionCmd(baseURL, submitToken, reviewToken *string, admin *bool, ui *ui) *cobra.Command {
	submission := &cobra.Command{
		Use:   "submission",
		Short: "Submission operations",
	}

	var (
		title            string
		description      string
		dataType         string
		contributionType string
		tags             string
		license          string
		metadataJSON     string
		manifestPath     string
		storageURI       string
		idempotencyKey   string
	)

	buildMetadata := func() (map[string]any, error) {
		if strings.TrimSpace(manifestPath) != "" {
			data, err := os.ReadFile(manifestPath)
			if err != nil {
				return nil, err
			}
			var meta map[string]any
			if err := yaml.Unmarshal(data, &meta); err != nil {
				return nil, fmt.Errorf("invalid manifest YAML: %w", err)
			}
			return meta, nil
		}
		if strings.TrimSpace(metadataJSON) != "" {
			var meta map[string]any
			if err := json.Unmarshal([]byte(metadataJSON), &meta); err != nil {
				return nil, fmt.Errorf("invalid metadata JSON: %w", err)
			}
			return meta, nil
		}
		if strings.TrimSpace(title) == "" {
			return nil, errors.New("title is required (or pass --metadata)")
		}
		meta := map[string]any{
			"title":       title,
			"description": description,
			"dataType":    dataType,
			"license":     license,
		}
		if contributionType != "" {
			meta["contributionType"] = contributionType
		}
		if ts := splitList(tags); len(ts) > 0 {
			meta["tags"] = ts
		}
		return meta, nil
	}

	create := &cobra.Command{
		Use:     "create",
		Short:   "Create a submission",
		Example: "curator submission create --title 'Weather 2025' --data-type tabular --license CC-BY --description '...'",
		RunE: func(cmd *cobra.Command, args []string) error {
			meta, err := buildMetadata()
			if err != nil {
				return err
			}
			token := submitAuthToken(*submitToken, *reviewToken)
			if token == "" {
				return errors.New("token is required (run `curator auth set` or set token)")
			}
			c := newClient(*baseURL, *submitToken, *reviewToken, *admin)
			body := map[string]any{"metadata": meta}
			if storageURI != "" {
				body["storageUri"] = storageURI
			}
			if idempotencyKey != "" {
				body["idempotencyKey"] = idempotencyKey
			}

			spin := spinner.New(spinner.CharSets[14], 120*time.Millisecond)
			spin.Suffix = " Submitting..."
			spin.Start()
			status, resp, err := c.request("POST", "/v1/curator/submissions", token, body)
			spin.Stop()
			if err != nil {
				return err
			}
			if status >= 300 {
				return fmt.Errorf("error (%d): %s", status, string(resp))
			}
			var out submissionResp
			if err := json.Unmarshal(resp, &out); err != nil {
				fmt.Println(string(resp))
				return nil
			}
			score := "?"
			if out.QualityScore != nil {
				score = fmt.Sprintf("%d", *out.QualityScore)
			}
			fmt.Printf("%s Submission created: %s (score %s, %s)\n", ui.ok("[OK]"), out.ID, score, out.Status)
			return nil
		},
	}
	create.Flags().StringVar(&title, "title", "", "Dataset title")
	create.Flags().StringVar(&description, "description", "", "Dataset description")
	create.Flags().StringVar(&dataType, "data-type", "", "Data type (tabular, image, text, ...)")
	create.Flags().StringVar(&contributionType, "contribution-type", "", "Contribution type")
	create.Flags().StringVar(&tags, "tags", "", "Comma-separated tags")
	create.Flags().StringVar(&license, "license", "", "License identifier")
	create.Flags().StringVar(&metadataJSON, "metadata", "", "Full metadata as JSON (overrides field flags)")
	create.Flags().StringVar(&manifestPath, "manifest", "", "YAML manifest file with the metadata")
	create.Flags().StringVar(&storageURI, "storage-uri", "", "Storage URI of the data payload")
	create.Flags().StringVar(&idempotencyKey, "idempotency-key", "", "Idempotency key")

	get := &cobra.Command{
		Use:   "get <id>",
		Short: "Get a submission",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			token := submitAuthToken(*submitToken, *reviewToken)
			if token == "" {
				return errors.New("token is required (run `curator auth set` or set token)")
			}
			c := newClient(*baseURL, *submitToken, *reviewToken, *admin)
			spin := spinner.New(spinner.CharSets[14], 120*time.Millisecond)
			spin.Suffix = " Fetching submission..."
			spin.Start()
			status, resp, err := c.request("GET", "/v1/curator/submissions/"+url.PathEscape(id), token, nil)
			spin.Stop()
			if err != nil {
				return err
			}
			if status >= 300 {
				return fmt.Errorf("error (%d): %s", status, string(resp))
			}
			fmt.Println(string(resp))
			return nil
		},
	}

	score := &cobra.Command{
		Use:   "score",
		Short: "Preview the quality score without persisting",
		RunE: func(cmd *cobra.Command, args []string) error {
			meta, err := buildMetadata()
			if err != nil {
				return err
			}
			token := submitAuthToken(*submitToken, *reviewToken)
			if token == "" {
				return errors.New("token is required (run `curator auth set` or set token)")
			}
			c := newClient(*baseURL, *submitToken, *reviewToken, *admin)
			spin := spinner.New(spinner.CharSets[14], 120*time.Millisecond)
			spin.Suffix = " Scoring..."
			spin.Start()
			status, resp, err := c.request("POST", "/v1/curator/submissions/score", token, map[string]any{"metadata": meta})
			spin.Stop()
			if err != nil {
				return err
			}
			if status >= 300 {
				return fmt.Errorf("error (%d): %s", status, string(resp))
			}
			var out assessmentResp
			if err := json.Unmarshal(resp, &out); err != nil {
				fmt.Println(string(resp))
				return nil
			}
			verdict := ui.ok("valid")
			if !out.Valid {
				verdict = ui.err("invalid")
			}
			fmt.Printf("%s Score: %d (%s)\n", ui.title("curator"), out.Score, verdict)
			for _, issue := range out.Issues {
				fmt.Printf("%s %s\n", ui.warn("!"), issue)
			}
			for _, rec := range out.Recommendations {
				fmt.Printf("%s %s\n", ui.dim("-"), rec)
			}
			return nil
		},
	}
	score.Flags().StringVar(&title, "title", "", "Dataset title")
	score.Flags().StringVar(&description, "description", "", "Dataset description")
	score.Flags().StringVar(&dataType, "data-type", "", "Data type (tabular, image, text, ...)")
	score.Flags().StringVar(&contributionType, "contribution-type", "", "Contribution type")
	score.Flags().StringVar(&tags, "tags", "", "Comma-separated tags")
	score.Flags().StringVar(&license, "license", "", "License identifier")
	score.Flags().StringVar(&metadataJSON, "metadata", "", "Full metadata as JSON (overrides field flags)")
	score.Flags().StringVar(&manifestPath, "manifest", "", "YAML manifest file with the metadata")

	submission.AddCommand(create, get, score)
	return submission
}

func reviewCmd(baseURL, submitToken, reviewToken *string, admin *bool, ui *ui) *cobra.Command {
	review := &cobra.Command{
		Use:   "review",
		Short: "Review operations",
	}

	var (
		listStatus string
		listLimit  int
	)

	list := &cobra.Command{
		Use:     "list",
		Short:   "List submissions by status",
		Example: "curator review list --status PENDING --limit 20",
		RunE: func(cmd *cobra.Command, args []string) error {
			token := reviewAuthToken(*reviewToken, *submitToken)
			if token == "" {
				return errors.New("token is required (run `curator auth set` or set token)")
			}
			c := newClient(*baseURL, *submitToken, *reviewToken, *admin)
			q := url.Values{}
			if listStatus != "" {
				q.Set("status", listStatus)
			}
			if listLimit > 0 {
				q.Set("limit", fmt.Sprintf("%d", listLimit))
			}
			path := "/v1/curator/submissions"
			if enc := q.Encode(); enc != "" {
				path += "?" + enc
			}
			spin := spinner.New(spinner.CharSets[14], 120*time.Millisecond)
			spin.Suffix = " Listing submissions..."
			spin.Start()
			status, resp, err := c.request("GET", path, token, nil)
			spin.Stop()
			if err != nil {
				return err
			}
			if status >= 300 {
				return fmt.Errorf("error (%d): %s", status, string(resp))
			}
			var out []submissionResp
			if err := json.Unmarshal(resp, &out); err != nil {
				fmt.Println(string(resp))
				return nil
			}
			if len(out) == 0 {
				fmt.Println(ui.dim("no submissions"))
				return nil
			}
			for _, s := range out {
				score := "--"
				if s.QualityScore != nil {
					score = fmt.Sprintf("%d", *s.QualityScore)
				}
				fmt.Printf("%s  %s  score=%s  user=%s\n", statusLabel(ui, s.Status), s.ID, score, s.UserID)
			}
			return nil
		},
	}
	list.Flags().StringVar(&listStatus, "status", "PENDING", "Status filter (PENDING|APPROVED|REJECTED)")
	list.Flags().IntVar(&listLimit, "limit", 50, "Max results")

	approve := &cobra.Command{
		Use:     "approve <id...>",
		Short:   "Approve one or more submissions",
		Example: "curator review approve 9f2c01ab 77aa41ce",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token := reviewAuthToken(*reviewToken, *submitToken)
			if token == "" {
				return errors.New("token is required (run `curator auth set` or set token)")
			}
			c := newClient(*baseURL, *submitToken, *reviewToken, *admin)

			var bar *progressbar.ProgressBar
			if len(args) > 1 {
				bar = progressbar.NewOptions(len(args),
					progressbar.OptionSetDescription("Approving submissions"),
					progressbar.OptionSetWidth(18),
					progressbar.OptionShowCount(),
					progressbar.OptionClearOnFinish(),
				)
			}
			var failed int
			for _, id := range args {
				status, resp, err := c.request("POST", "/v1/curator/submissions/"+url.PathEscape(id)+"/approve", token, nil)
				if bar != nil {
					_ = bar.Add(1)
				}
				if err != nil {
					failed++
					fmt.Printf("%s %s: %v\n", ui.err("[ERROR]"), id, err)
					continue
				}
				if status >= 300 {
					failed++
					fmt.Printf("%s %s: (%d) %s\n", ui.err("[ERROR]"), id, status, string(resp))
					continue
				}
				var out submissionResp
				if err := json.Unmarshal(resp, &out); err != nil {
					fmt.Println(string(resp))
					continue
				}
				line := fmt.Sprintf("%s Approved: %s", ui.ok("[OK]"), out.ID)
				if out.RewardTxRef != "" {
					line += ui.dim(" reward=" + out.RewardTxRef)
				}
				if out.RewardError != "" {
					line += " " + ui.warn("reward: "+out.RewardError)
				}
				fmt.Println(line)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d approvals failed", failed, len(args))
			}
			return nil
		},
	}

	var rejectReason string
	reject := &cobra.Command{
		Use:   "reject <id>",
		Short: "Reject a submission",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			token := reviewAuthToken(*reviewToken, *submitToken)
			if token == "" {
				return errors.New("token is required (run `curator auth set` or set token)")
			}
			c := newClient(*baseURL, *submitToken, *reviewToken, *admin)
			var body map[string]any
			if rejectReason != "" {
				body = map[string]any{"reason": rejectReason}
			}
			spin := spinner.New(spinner.CharSets[14], 120*time.Millisecond)
			spin.Suffix = " Rejecting..."
			spin.Start()
			status, resp, err := c.request("POST", "/v1/curator/submissions/"+url.PathEscape(id)+"/reject", token, body)
			spin.Stop()
			if err != nil {
				return err
			}
			if status >= 300 {
				return fmt.Errorf("error (%d): %s", status, string(resp))
			}
			fmt.Printf("%s Rejected: %s\n", ui.ok("[OK]"), id)
			return nil
		},
	}
	reject.Flags().StringVar(&rejectReason, "reason", "", "Rejection reason")

	var autoThreshold int
	auto := &cobra.Command{
		Use:     "auto",
		Short:   "Auto-approve pending submissions above a score threshold",
		Example: "curator review auto --threshold 90",
		RunE: func(cmd *cobra.Command, args []string) error {
			token := reviewAuthToken(*reviewToken, *submitToken)
			if token == "" {
				return errors.New("token is required (run `curator auth set` or set token)")
			}
			c := newClient(*baseURL, *submitToken, *reviewToken, *admin)
			var body map[string]any
			if autoThreshold > 0 {
				body = map[string]any{"threshold": autoThreshold}
			}
			spin := spinner.New(spinner.CharSets[14], 120*time.Millisecond)
			spin.Suffix = " Auto-approving..."
			spin.Start()
			status, resp, err := c.request("POST", "/v1/curator/admin/auto-approve", token, body)
			spin.Stop()
			if err != nil {
				return err
			}
			if status >= 300 {
				return fmt.Errorf("error (%d): %s", status, string(resp))
			}
			var out autoApproveResp
			if err := json.Unmarshal(resp, &out); err != nil {
				fmt.Println(string(resp))
				return nil
			}
			fmt.Printf("%s Considered %d, approved %d, failed %d\n",
				ui.ok("[OK]"), out.ConsideredCount, out.ApprovedCount, out.FailedCount)
			for _, id := range out.ApprovedIDs {
				fmt.Printf("%s %s\n", ui.dim("-"), id)
			}
			return nil
		},
	}
	auto.Flags().IntVar(&autoThreshold, "threshold", 0, "Minimum score (default from server config)")

	review.AddCommand(list, approve, reject, auto)
	return review
}

func relayCmd(baseURL, submitToken, reviewToken *string, admin *bool, ui *ui) *cobra.Command {
	relay := &cobra.Command{
		Use:   "relay",
		Short: "Relay pipeline operations",
	}

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Inspect relay queue depth",
		RunE: func(cmd *cobra.Command, args []string) error {
			token := reviewAuthToken(*reviewToken, *submitToken)
			if token == "" {
				return errors.New("token is required (run `curator auth set` or set token)")
			}
			c := newClient(*baseURL, *submitToken, *reviewToken, *admin)
			spin := spinner.New(spinner.CharSets[14], 120*time.Millisecond)
			spin.Suffix = " Inspecting relay queue..."
			spin.Start()
			status, resp, err := c.request("GET", "/v1/curator/admin/relay/stats", token, nil)
			spin.Stop()
			if err != nil {
				return err
			}
			if status >= 300 {
				return fmt.Errorf("error (%d): %s", status, string(resp))
			}
			var out relayStatsResp
			if err := json.Unmarshal(resp, &out); err != nil {
				fmt.Println(string(resp))
				return nil
			}
			fmt.Printf("%s: %d | %s: %d | %s: %d | %s: %d | %s: %d\n",
				ui.ok("PENDING"), out.Pending,
				ui.warn("DELAYED"), out.Delayed,
				ui.info("IN_FLIGHT"), out.InFlight,
				ui.err("FAILED"), out.Failed,
				ui.dim("BACKLOG"), out.Backlog,
			)
			return nil
		},
	}

	sweep := &cobra.Command{
		Use:   "sweep",
		Short: "Run a relay sweep now",
		RunE: func(cmd *cobra.Command, args []string) error {
			token := reviewAuthToken(*reviewToken, *submitToken)
			if token == "" {
				return errors.New("token is required (run `curator auth set` or set token)")
			}
			c := newClient(*baseURL, *submitToken, *reviewToken, *admin)
			spin := spinner.New(spinner.CharSets[14], 120*time.Millisecond)
			spin.Suffix = " Sweeping..."
			spin.Start()
			status, resp, err := c.request("POST", "/v1/curator/admin/relay/sweep", token, nil)
			spin.Stop()
			if err != nil {
				return err
			}
			if status >= 300 {
				return fmt.Errorf("error (%d): %s", status, string(resp))
			}
			var out struct {
				Enqueued int `json:"enqueued"`
			}
			if err := json.Unmarshal(resp, &out); err != nil {
				fmt.Println(string(resp))
				return nil
			}
			fmt.Printf("%s Enqueued %d relay jobs\n", ui.ok("[OK]"), out.Enqueued)
			return nil
		},
	}

	enqueue := &cobra.Command{
		Use:   "enqueue <id>",
		Short: "Enqueue a relay job for one submission",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			token := reviewAuthToken(*reviewToken, *submitToken)
			if token == "" {
				return errors.New("token is required (run `curator auth set` or set token)")
			}
			c := newClient(*baseURL, *submitToken, *reviewToken, *admin)
			spin := spinner.New(spinner.CharSets[14], 120*time.Millisecond)
			spin.Suffix = " Enqueueing relay..."
			spin.Start()
			status, resp, err := c.request("POST", "/v1/curator/admin/relay/submissions/"+url.PathEscape(id), token, nil)
			spin.Stop()
			if err != nil {
				return err
			}
			if status >= 300 {
				return fmt.Errorf("error (%d): %s", status, string(resp))
			}
			fmt.Printf("%s Relay enqueued for %s\n", ui.ok("[OK]"), id)
			return nil
		},
	}

	relay.AddCommand(stats, sweep, enqueue)
	return relay
}

func userCmd(baseURL, submitToken, reviewToken *string, admin *bool, ui *ui) *cobra.Command {
	user := &cobra.Command{
		Use:   "user",
		Short: "User operations",
	}

	var (
		primaryAddress   string
		secondaryAddress string
		reputation       int64
	)

	set := &cobra.Command{
		Use:     "set <id>",
		Short:   "Create or update a user profile",
		Example: "curator user set alice --primary-address 0xabc... --secondary-address 0xdef...",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			token := submitAuthToken(*submitToken, *reviewToken)
			if token == "" {
				return errors.New("token is required (run `curator auth set` or set token)")
			}
			c := newClient(*baseURL, *submitToken, *reviewToken, *admin)
			body := map[string]any{}
			if primaryAddress != "" {
				body["primaryAddress"] = primaryAddress
			}
			if secondaryAddress != "" {
				body["secondaryAddress"] = secondaryAddress
			}
			if cmd.Flags().Changed("reputation") {
				body["reputation"] = reputation
			}
			spin := spinner.New(spinner.CharSets[14], 120*time.Millisecond)
			spin.Suffix = " Saving user..."
			spin.Start()
			status, resp, err := c.request("PUT", "/v1/curator/users/"+url.PathEscape(id), token, body)
			spin.Stop()
			if err != nil {
				return err
			}
			if status >= 300 {
				return fmt.Errorf("error (%d): %s", status, string(resp))
			}
			fmt.Printf("%s User saved: %s\n", ui.ok("[OK]"), id)
			return nil
		},
	}
	set.Flags().StringVar(&primaryAddress, "primary-address", "", "Reward destination address")
	set.Flags().StringVar(&secondaryAddress, "secondary-address", "", "Reputation relay address")
	set.Flags().Int64Var(&reputation, "reputation", 0, "Reputation score")

	get := &cobra.Command{
		Use:   "get <id>",
		Short: "Get a user profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			token := submitAuthToken(*submitToken, *reviewToken)
			if token == "" {
				return errors.New("token is required (run `curator auth set` or set token)")
			}
			c := newClient(*baseURL, *submitToken, *reviewToken, *admin)
			spin := spinner.New(spinner.CharSets[14], 120*time.Millisecond)
			spin.Suffix = " Fetching user..."
			spin.Start()
			status, resp, err := c.request("GET", "/v1/curator/users/"+url.PathEscape(id), token, nil)
			spin.Stop()
			if err != nil {
				return err
			}
			if status >= 300 {
				return fmt.Errorf("error (%d): %s", status, string(resp))
			}
			fmt.Println(string(resp))
			return nil
		},
	}

	user.AddCommand(set, get)
	return user
}

func newClient(baseURL, submitToken, reviewToken string, admin bool) *client {
	return &client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		submitToken: submitToken,
		reviewToken: reviewToken,
		admin:       admin,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
	}
}

func statusLabel(ui *ui, status string) string {
	switch status {
	case "APPROVED":
		return ui.ok(status)
	case "REJECTED":
		return ui.err(status)
	case "PENDING":
		return ui.warn(status)
	default:
		return ui.dim(status)
	}
}

func getenv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getenvBool(k string, def bool) bool {
	v := strings.TrimSpace(strings.ToLower(os.Getenv(k)))
	if v == "" {
		return def
	}
	return v == "1" || v == "true" || v == "yes"
}

func isLocalURL(u string) bool {
	parsed, err := url.Parse(u)
	if err != nil {
		return false
	}
	host := strings.ToLower(parsed.Hostname())
	return host == "localhost" || host == "127.0.0.1"
}

func submitAuthToken(submit, review string) string {
	if strings.TrimSpace(submit) != "" {
		return submit
	}
	if strings.TrimSpace(review) != "" {
		return review
	}
	return ""
}

func reviewAuthToken(review, submit string) string {
	if strings.TrimSpace(review) != "" {
		return review
	}
	if strings.TrimSpace(submit) != "" {
		return submit
	}
	return ""
}

func splitList(s string) []string {
	var out []string
	for _, e := range strings.Split(s, ",") {
		e = strings.TrimSpace(e)
		if e != "" {
			out = append(out, e)
		}
	}
	return out
}

func helpTemplate(ui *ui) string {
	title := ui.title("curator")
	return fmt.Sprintf(`%s — CLI for curator

Usage:
  {{.UseLine}}

Commands:
{{range .Commands}}{{if (or .IsAvailableCommand .IsAdditionalHelpTopicCommand)}}
  {{rpad .Name .NamePadding }} {{.Short}}{{end}}{{end}}

Flags:
  {{.LocalFlags.FlagUsages | trimTrailingWhitespaces}}

Global Flags:
  {{.InheritedFlags.FlagUsages | trimTrailingWhitespaces}}

Config:
  %s

Examples:
  curator init
  curator auth set --review-token <token>
  curator submission create --title 'Weather 2025' --data-type tabular --license CC-BY
  curator review list --status PENDING
  curator review approve 9f2c01ab
  curator relay stats

`, title, configPath())
}

func promptSecret(label string) (string, error) {
	fmt.Printf("%s: ", label)
	b, err := termReadPassword()
	fmt.Println()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

func termReadPassword() ([]byte, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		reader := bufio.NewReader(os.Stdin)
		line, err := reader.ReadString('\n')
		return []byte(strings.TrimSpace(line)), err
	}
	return term.ReadPassword(fd)
}

func loadConfig() (cliConfig, string, error) {
	path := configPath()
	var cfg cliConfig
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cliConfig{Profiles: map[string]profile{}}, path, nil
		}
		return cfg, path, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, path, err
	}
	if cfg.Profiles == nil {
		cfg.Profiles = map[string]profile{}
	}
	return cfg, path, nil
}

func saveConfig(cfg cliConfig, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func configPath() string {
	if v := strings.TrimSpace(os.Getenv("CURATOR_CONFIG_DIR")); v != "" {
		return filepath.Join(v, "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.yaml"
	}
	return filepath.Join(home, ".curator", "config.yaml")
}

func resolveProfileName(flag string, cfg cliConfig) string {
	if strings.TrimSpace(flag) != "" {
		return strings.TrimSpace(flag)
	}
	if v := strings.TrimSpace(os.Getenv("CURATOR_PROFILE")); v != "" {
		return v
	}
	if cfg.CurrentProfile != "" {
		return cfg.CurrentProfile
	}
	return "default"
}

func prompt(r *bufio.Reader, label, def string) string {
	if def != "" {
		fmt.Printf("%s [%s]: ", label, def)
	} else {
		fmt.Printf("%s: ", label)
	}
	line, _ := r.ReadString('\n')
	line = strings.TrimSpace(line)
	if line == "" {
		return def
	}
	return line
}

func maskToken(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "<unset>"
	}
	if len(v) <= 8 {
		return "****"
	}
	return v[:4] + "..." + v[len(v)-4:]
}

func emptyOr(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
