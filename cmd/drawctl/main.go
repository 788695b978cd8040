package main

import (
	"context"
	"drawboard-server/canvas"
	"drawboard-server/client"
	"drawboard-server/gallery"
	"drawboard-server/shell"
	"encoding/json"
	"fmt"
	"image/png"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tdewolff/argp"
)

const defaultServer = "http://localhost:3002/api"

type List struct {
	Server  string `short:"s" default:"http://localhost:3002/api" desc:"API base URL"`
	Timeout int    `short:"t" default:"30" desc:"Request timeout in seconds"`
	Verbose bool   `short:"v" desc:"Log API calls"`
}

type Delete struct {
	Server  string `short:"s" default:"http://localhost:3002/api" desc:"API base URL"`
	Timeout int    `short:"t" default:"30" desc:"Request timeout in seconds"`
	Verbose bool   `short:"v" desc:"Log API calls"`
	ID      string `index:"0" desc:"Drawing id"`
}

type Draw struct {
	Server  string `short:"s" default:"http://localhost:3002/api" desc:"API base URL"`
	Timeout int    `short:"t" default:"30" desc:"Request timeout in seconds"`
	Verbose bool   `short:"v" desc:"Log API calls"`
	Output  string `short:"o" desc:"Write the PNG here instead of saving it"`
	Input   string `index:"0" desc:"JSON file with strokes"`
}

type Render struct {
	Server  string `short:"s" default:"http://localhost:3002/api" desc:"API base URL"`
	Timeout int    `short:"t" default:"30" desc:"Request timeout in seconds"`
	Verbose bool   `short:"v" desc:"Log API calls"`
	Output  string `short:"o" desc:"Output HTML file, stdout by default"`
}

type Export struct {
	Server  string `short:"s" default:"http://localhost:3002/api" desc:"API base URL"`
	Timeout int    `short:"t" default:"30" desc:"Request timeout in seconds"`
	Verbose bool   `short:"v" desc:"Log API calls"`
	Output  string `short:"o" desc:"Output PNG file"`
	ID      string `index:"0" desc:"Drawing id"`
}

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logrus.SetOutput(os.Stderr)

	root := argp.NewCmd(&List{}, "DrawBoard command line client")
	root.AddCmd(&Delete{}, "delete", "Delete a drawing")
	root.AddCmd(&Draw{}, "draw", "Replay strokes on a blank canvas and save the result")
	root.AddCmd(&Render{}, "render", "Render the gallery as HTML")
	root.AddCmd(&Export{}, "export", "Write a saved drawing to a PNG file")
	root.Parse()
	root.PrintHelp()
}

func connect(server string, timeout int, verbose bool) (*client.Client, error) {
	if verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}
	if server == "" {
		server = defaultServer
	}
	if timeout <= 0 {
		timeout = int(client.DefaultTimeout / time.Second)
	}
	return client.New(server, client.WithTimeout(time.Duration(timeout)*time.Second))
}

func (cmd *List) Run() error {
	c, err := connect(cmd.Server, cmd.Timeout, cmd.Verbose)
	if err != nil {
		return err
	}

	g := gallery.New(c)
	if err := g.Load(context.Background()); err != nil {
		return err
	}
	if g.Empty() {
		fmt.Println(gallery.EmptyTitle)
		fmt.Println(gallery.EmptyHint)
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCREATED\tSIZE")
	for _, d := range g.Items() {
		fmt.Fprintf(w, "%s\t%s\t%d\n", d.ID, gallery.FormatKorean(d.CreatedAt, time.Local), len(d.ImageData))
	}
	return w.Flush()
}

func (cmd *Delete) Run() error {
	if cmd.ID == "" {
		return argp.ShowUsage
	}
	c, err := connect(cmd.Server, cmd.Timeout, cmd.Verbose)
	if err != nil {
		return err
	}

	g := gallery.New(c)
	if err := g.Delete(context.Background(), cmd.ID); err != nil {
		return err
	}
	fmt.Println("deleted", cmd.ID)
	return nil
}

func (cmd *Draw) Run() error {
	if cmd.Input == "" {
		return argp.ShowUsage
	}

	raw, err := os.ReadFile(cmd.Input)
	if err != nil {
		return err
	}
	var strokes []canvas.Stroke
	if err := json.Unmarshal(raw, &strokes); err != nil {
		return fmt.Errorf("failed to parse %s: %w", cmd.Input, err)
	}

	if cmd.Output != "" {
		board := canvas.New()
		if err := board.Replay(strokes); err != nil {
			return err
		}
		return writePNG(cmd.Output, board)
	}

	c, err := connect(cmd.Server, cmd.Timeout, cmd.Verbose)
	if err != nil {
		return err
	}

	page := shell.New(func(view shell.View, refreshKey int) {
		logrus.WithFields(logrus.Fields{
			"view":       view,
			"refreshKey": refreshKey,
		}).Debug("View changed")
	})
	board := canvas.New(canvas.WithSaver(c), canvas.WithSaveComplete(page.SaveCompleted))
	if err := board.Replay(strokes); err != nil {
		return err
	}

	id, err := board.Save(context.Background())
	if err != nil {
		return err
	}
	fmt.Println("saved", id)
	return nil
}

func (cmd *Render) Run() error {
	c, err := connect(cmd.Server, cmd.Timeout, cmd.Verbose)
	if err != nil {
		return err
	}

	g := gallery.New(c)
	if err := g.Load(context.Background()); err != nil {
		return err
	}

	var w io.Writer = os.Stdout
	if cmd.Output != "" {
		f, err := os.Create(cmd.Output)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	return g.Render(w)
}

func (cmd *Export) Run() error {
	if cmd.ID == "" || cmd.Output == "" {
		return argp.ShowUsage
	}
	c, err := connect(cmd.Server, cmd.Timeout, cmd.Verbose)
	if err != nil {
		return err
	}

	drawings, err := c.List(context.Background())
	if err != nil {
		return err
	}
	for _, d := range drawings {
		if d.ID != cmd.ID {
			continue
		}
		img, err := canvas.DecodeDataURL(d.ImageData)
		if err != nil {
			return err
		}
		f, err := os.Create(cmd.Output)
		if err != nil {
			return err
		}
		defer f.Close()
		return png.Encode(f, img)
	}
	return fmt.Errorf("drawing %s not found", cmd.ID)
}

func writePNG(path string, board *canvas.Board) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, board.Image())
}
