package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"

	"github.com/KarpelesLab/webutil"
	"github.com/sigmaSd/contentrepo"
	"golang.org/x/sync/errgroup"
)

// upload given file(s) to a content repository

var (
	cfgFile  = flag.String("config", "", "yaml config file")
	baseURL  = flag.String("base", "", "repository base url, eg. https://media.example.com")
	token    = flag.String("token", "", "access token (defaults to $REPO_ACCESS_TOKEN)")
	mimeType = flag.String("type", "", "force content type instead of sniffing it")
	uriOnly  = flag.Bool("uri-only", false, "print only the content uri")
	thumb    = flag.String("thumb", "", "print a thumbnail url for each upload, eg. width=96&height=96&method=scale")
	parallel = flag.Int("parallel", 0, "number of concurrent uploads")
	verbose  = flag.Bool("v", false, "log upload progress")
)

func main() {
	flag.Parse()
	if flag.NArg() == 0 {
		log.Printf("no files to upload")
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := loadConfig(*cfgFile)
	if err != nil {
		log.Printf("failed to load config: %s", err)
		os.Exit(1)
	}
	if *baseURL != "" {
		cfg.BaseURL = *baseURL
	}
	if *token != "" {
		cfg.AccessToken = *token
	}
	if *parallel > 0 {
		cfg.Parallel = *parallel
	}
	if cfg.Parallel < 1 {
		cfg.Parallel = 1
	}

	client, err := contentrepo.New(contentrepo.Config{
		BaseURL:      cfg.BaseURL,
		AccessToken:  cfg.AccessToken,
		TokenInQuery: cfg.TokenInQuery,
		Prefix:       cfg.Prefix,
	})
	if err != nil {
		log.Printf("%s", err)
		os.Exit(1)
	}

	// thumbnail params use the same query syntax as the server
	var thumbOpts *contentrepo.ThumbnailOpts
	if *thumb != "" {
		q := webutil.ParsePhpQuery(*thumb)
		thumbOpts = &contentrepo.ThumbnailOpts{}
		if v, ok := q["method"].(string); ok {
			thumbOpts.Method = v
		}
		if v, ok := q["width"].(string); ok {
			thumbOpts.Width, _ = strconv.Atoi(v)
		}
		if v, ok := q["height"].(string); ok {
			thumbOpts.Height, _ = strconv.Atoi(v)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Parallel)

	for _, fn := range flag.Args() {
		fn := fn
		g.Go(func() error {
			return doUpload(ctx, client, fn, thumbOpts)
		})
	}

	err = g.Wait()
	// let aborted handles unwind before exiting
	client.WaitUploads(0)
	if err != nil {
		log.Printf("failed to upload: %s", err)
		os.Exit(1)
	}
}

func doUpload(ctx context.Context, client *contentrepo.Client, fn string, thumbOpts *contentrepo.ThumbnailOpts) error {
	f, err := os.Open(fn)
	if err != nil {
		return err
	}
	defer f.Close()

	opts := &contentrepo.UploadOpts{ContentType: *mimeType}
	if *verbose {
		opts.Progress = func(loaded, total int64) {
			log.Printf("%s: %d/%d bytes", fn, loaded, total)
		}
	}

	up := client.UploadContent(ctx, f, opts)
	res, err := up.Wait(ctx)
	if err != nil {
		return err
	}

	if thumbOpts != nil {
		u, err := client.DownloadURL(res.ContentURI, thumbOpts)
		if err != nil {
			return err
		}
		fmt.Printf("%s\n", u)
		return nil
	}
	if *uriOnly {
		fmt.Printf("%s\n", res.ContentURI)
		return nil
	}
	fmt.Printf("%s: %s\n", fn, res.ContentURI)
	return nil
}
