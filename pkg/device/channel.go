package device

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"

	"go.bug.st/serial"

	"github.com/itohio/gotherm/pkg/config"
	"github.com/itohio/gotherm/pkg/dispatch"
)

// requestBuffer bounds how many host requests can queue between polls.
const requestBuffer = 16

// Request is a parsed host command: a single register read or write.
type Request struct {
	Write bool
	Addr  uint8
	Value byte
}

// ParseRequest parses one line of the host protocol. The protocol is
// line oriented with hex fields:
//
//	r <addr>          read a register
//	w <addr> <value>  write a register
func ParseRequest(line string) (Request, error) {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(line)))
	if len(fields) == 0 {
		return Request{}, fmt.Errorf("empty request")
	}

	switch fields[0] {
	case "r":
		if len(fields) != 2 {
			return Request{}, fmt.Errorf("read wants 1 operand, got %d", len(fields)-1)
		}
		addr, err := strconv.ParseUint(fields[1], 16, 8)
		if err != nil {
			return Request{}, fmt.Errorf("bad address %q: %w", fields[1], err)
		}
		return Request{Addr: uint8(addr)}, nil

	case "w":
		if len(fields) != 3 {
			return Request{}, fmt.Errorf("write wants 2 operands, got %d", len(fields)-1)
		}
		addr, err := strconv.ParseUint(fields[1], 16, 8)
		if err != nil {
			return Request{}, fmt.Errorf("bad address %q: %w", fields[1], err)
		}
		value, err := strconv.ParseUint(fields[2], 16, 8)
		if err != nil {
			return Request{}, fmt.Errorf("bad value %q: %w", fields[2], err)
		}
		return Request{Write: true, Addr: uint8(addr), Value: byte(value)}, nil
	}

	return Request{}, fmt.Errorf("unknown request %q", fields[0])
}

// Execute runs a parsed request against the register file and returns
// the reply line, newline included.
func (d *Device) Execute(req Request) string {
	if req.Write {
		if err := d.WriteByte(req.Addr, req.Value); err != nil {
			return fmt.Sprintf("err %v\n", err)
		}
		return "ok\n"
	}

	value, err := d.ReadByte(req.Addr)
	if err != nil {
		return fmt.Sprintf("err %v\n", err)
	}
	return fmt.Sprintf("%02x %02x\n", req.Addr, value)
}

// Channel is the serial host command channel. A reader goroutine feeds
// request lines into a buffered queue; Poll drains it from the
// cooperative main context so register access stays single-threaded.
type Channel struct {
	dev  *Device
	port serial.Port

	requests chan string
	done     chan struct{}
}

// OpenChannel opens the configured serial port and starts reading
// requests. An empty port name disables the channel and returns nil.
func OpenChannel(cfg *config.ChannelConfig, dev *Device) (*Channel, error) {
	if cfg.Port == "" {
		return nil, nil
	}

	mode := &serial.Mode{BaudRate: cfg.BaudRate}
	port, err := serial.Open(cfg.Port, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open host channel %s: %w", cfg.Port, err)
	}

	c := &Channel{
		dev:      dev,
		port:     port,
		requests: make(chan string, requestBuffer),
		done:     make(chan struct{}),
	}
	go c.readRequests()

	return c, nil
}

// Close closes the serial port and stops the reader.
func (c *Channel) Close() error {
	err := c.port.Close()
	<-c.done
	return err
}

// Poll services at most one pending host request. Processing a request
// reports Eager so the dispatch loop comes straight back for the rest of
// the queue before any tick work runs.
func (c *Channel) Poll() dispatch.Status {
	select {
	case line := <-c.requests:
		c.reply(c.process(line))
		return dispatch.Eager
	default:
		return dispatch.NotApplicable
	}
}

func (c *Channel) process(line string) string {
	req, err := ParseRequest(line)
	if err != nil {
		return fmt.Sprintf("err %v\n", err)
	}
	return c.dev.Execute(req)
}

func (c *Channel) reply(response string) {
	if _, err := c.port.Write([]byte(response)); err != nil {
		log.Printf("host channel write: %v", err)
	}
}

// readRequests reads lines from the serial port into the request queue.
func (c *Channel) readRequests() {
	defer close(c.done)

	scanner := bufio.NewScanner(c.port)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		select {
		case c.requests <- line:
		default:
			log.Printf("host channel queue full, dropping request")
		}
	}

	if err := scanner.Err(); err != nil && err != io.EOF {
		log.Printf("host channel read: %v", err)
	}
}
