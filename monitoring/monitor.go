// Package monitoring turns a running simulation into a small web server so
// that machine states, clocks, and queue lengths can be watched live, and a
// run can be stopped from outside.
package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"time"

	// Enable profiling
	_ "net/http/pprof"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/pkg/browser"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"

	"github.com/MKJM2/cs2620-logical-clocks/sim"
)

// Monitor exposes a running simulation over HTTP.
type Monitor struct {
	machines   []*sim.Machine
	portNumber int
	stop       context.CancelFunc
	open       bool
}

// NewMonitor creates a new Monitor.
func NewMonitor() *Monitor {
	return &Monitor{}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n",
			portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// WithBrowser opens the monitor address in a browser once the server is up.
func (m *Monitor) WithBrowser() *Monitor {
	m.open = true
	return m
}

// RegisterMachine registers a machine to be monitored.
func (m *Monitor) RegisterMachine(machine *sim.Machine) {
	m.machines = append(m.machines, machine)
}

// RegisterStopFunc registers the cancellation that /api/stop triggers.
func (m *Monitor) RegisterStopFunc(stop context.CancelFunc) {
	m.stop = stop
}

// StartServer starts the monitor as a web server.
func (m *Monitor) StartServer() {
	r := mux.NewRouter()
	r.HandleFunc("/api/machines", m.listMachines)
	r.HandleFunc("/api/machine/{id}", m.machineDetails)
	r.HandleFunc("/api/status", m.status)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)
	r.HandleFunc("/api/stop", m.stopRun)
	http.Handle("/", r)

	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	dieOnErr(err)

	url := fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)
	fmt.Fprintf(os.Stderr, "Monitoring simulation with %s\n", url)

	if m.open {
		_ = browser.OpenURL(url)
	}

	go func() {
		err = http.Serve(listener, nil)
		dieOnErr(err)
	}()
}

type machineStatus struct {
	ID       int     `json:"id"`
	State    string  `json:"state"`
	TickRate float64 `json:"tick_rate"`
	Clock    int64   `json:"clock"`
	QueueLen int     `json:"queue_len"`
}

func (m *Monitor) snapshot() []machineStatus {
	statuses := make([]machineStatus, 0, len(m.machines))
	for _, machine := range m.machines {
		statuses = append(statuses, machineStatus{
			ID:       int(machine.ID()),
			State:    machine.State().String(),
			TickRate: float64(machine.Rate()),
			Clock:    int64(machine.ClockTime()),
			QueueLen: machine.QueueLen(),
		})
	}

	return statuses
}

func (m *Monitor) listMachines(w http.ResponseWriter, _ *http.Request) {
	fmt.Fprint(w, "[")
	for i, machine := range m.machines {
		if i > 0 {
			fmt.Fprint(w, ",")
		}

		fmt.Fprintf(w, "%d", machine.ID())
	}
	fmt.Fprint(w, "]")
}

func (m *Monitor) machineDetails(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	machine := m.findMachineOr404(w, sim.MachineID(id))
	if machine == nil {
		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(machine)
	serializer.SetMaxDepth(1)
	err = serializer.Serialize(w)

	dieOnErr(err)
}

func (m *Monitor) status(w http.ResponseWriter, _ *http.Request) {
	bytes, err := json.Marshal(m.snapshot())
	dieOnErr(err)

	_, err = w.Write(bytes)
	dieOnErr(err)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	pid := os.Getpid()
	process, err := process.NewProcess(int32(pid))
	dieOnErr(err)

	cpuPercent, err := process.CPUPercent()
	dieOnErr(err)

	memorySize, err := process.MemoryInfo()
	dieOnErr(err)

	rsp := resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memorySize.RSS,
	}

	bytes, err := json.Marshal(rsp)
	dieOnErr(err)

	_, err = w.Write(bytes)
	dieOnErr(err)
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	dieOnErr(err)

	time.Sleep(time.Second)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	dieOnErr(err)

	bytes, err := json.Marshal(prof)
	dieOnErr(err)

	_, err = w.Write(bytes)
	dieOnErr(err)
}

func (m *Monitor) stopRun(w http.ResponseWriter, _ *http.Request) {
	if m.stop == nil {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	m.stop()
	w.WriteHeader(http.StatusOK)
}

func (m *Monitor) findMachineOr404(
	w http.ResponseWriter,
	id sim.MachineID,
) *sim.Machine {
	for _, machine := range m.machines {
		if machine.ID() == id {
			return machine
		}
	}

	w.WriteHeader(http.StatusNotFound)
	_, err := w.Write([]byte("Machine not found"))
	dieOnErr(err)

	return nil
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}
