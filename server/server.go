package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zhonghao-hub/Database/hash_index"
)

type Server struct {
	addr     string
	listener net.Listener

	dataStructureLayer hash_index.DataStructureLayer
	nextTxnId          atomic.Uint64

	shutdown     chan struct{}
	shutdownOnce *sync.Once
}

func NewServer(addr string, dataStructureLayer hash_index.DataStructureLayer) (*Server, error) {

	listener, err := net.Listen("tcp", addr)

	if err != nil {
		return nil, err
	}

	return &Server{
		dataStructureLayer: dataStructureLayer,
		listener:           listener,
		addr:               addr,
		shutdown:           make(chan struct{}),
		shutdownOnce:       &sync.Once{},
	}, nil
}

func (server *Server) newTransaction() *hash_index.Transaction {

	return hash_index.NewTransaction(server.nextTxnId.Add(1))
}

func handleShutdown(conn net.Conn) {

	message := encodeShutdownMessage()

	slog.Info(fmt.Sprintf("sending shutdown message %v", message))
	if _, err := conn.Write(message); err != nil {
		slog.Error(err.Error(), "msg", "error while sending shutdown message")
	}

	if err := conn.Close(); err != nil {
		slog.Error(err.Error(), "msg", "error while closing connection")
	}

}

func sendErrorResponse(conn net.Conn, err error, message string) {

	slog.Error(err.Error(), "msg", message)
	response := encodeErrorResponse(err)

	if _, err2 := conn.Write(response); err2 != nil {
		slog.Error(err2.Error(), "msg", "error while writing to connection")
	}
}

func (server *Server) handleRequest(conn net.Conn) {

	// read request from connection
	request, err := readRequest(conn)

	// check for read timeout error
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return
	}
	// handle error
	if err != nil {
		sendErrorResponse(conn, err, "error while reading request")
		return
	}

	// interpret request body based on op code
	switch request.opCode {

	// handle PING request
	case 'P':

		if _, err := conn.Write(encodeOKResponse()); err != nil {
			slog.Error(err.Error(), "msg", "error while sending OK response")
		}

	// handle INSERT request
	case 'I':

		// extract key value pair from request body
		key, value, err := decodeInsertRequestBody(request.body)

		if err != nil {
			sendErrorResponse(conn, err, "error while decoding insert request")
			return
		}

		if err = server.dataStructureLayer.Insert(server.newTransaction(), key, value); err != nil {
			sendErrorResponse(conn, err, "error occured in data structure layer")
			return
		}

		if _, err = conn.Write(encodeOKResponse()); err != nil {
			slog.Error(err.Error(), "msg", "error while writing to conn")
		}

	// handle REMOVE request
	case 'R':

		// extract key value pair from request body
		key, value, err := decodeRemoveRequestBody(request.body)

		if err != nil {
			sendErrorResponse(conn, err, "error while decoding remove request")
			return
		}

		if err = server.dataStructureLayer.Remove(server.newTransaction(), key, value); err != nil {
			sendErrorResponse(conn, err, "error occured in data structure layer")
			return
		}

		if _, err = conn.Write(encodeOKResponse()); err != nil {
			slog.Error(err.Error(), "msg", "error while writing to conn")
		}

	// handle GET request
	case 'G':

		// extract key from request body
		key, err := decodeGetRequestBody(request.body)

		if err != nil {
			sendErrorResponse(conn, err, "error while decoding get request")
			return
		}

		values, err := server.dataStructureLayer.GetValue(server.newTransaction(), key)

		if err != nil {
			sendErrorResponse(conn, err, "error occured in data structure layer")
			return
		}

		response := encodeGetResponse(key, values)

		if _, err = conn.Write(response); err != nil {
			slog.Error(err.Error(), "msg", "error while writing to conn")
		}

	// handle CLOSE request
	case 'C':

		if _, err := conn.Write(encodeOKResponse()); err != nil {
			slog.Error(err.Error(), "msg", "error while writing to conn")
		}

		if err := conn.Close(); err != nil {
			slog.Error(err.Error(), "msg", "error while closing connection")
		}

	// handle SHUTDOWN request
	case 'S':
		slog.Info("server received shut down message")

		server.Shutdown()

	// handle invalid op code
	default:

		slog.Error("invalid op code")

		sendErrorResponse(conn, fmt.Errorf("invalid op code"), "invalid op code")

	}

}

func (server *Server) handleClient(conn net.Conn, wg *sync.WaitGroup) {

	defer wg.Done()
	for {

		select {

		case <-server.shutdown:
			slog.Info("client exiting...")
			handleShutdown(conn)
			return

		default:

			conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
			server.handleRequest(conn)
		}

	}

}

func (server *Server) listen(listenerWaitGroup, clientWaitGroup *sync.WaitGroup) {

	defer listenerWaitGroup.Done()

	for {

		conn, err := server.listener.Accept()
		if errors.Is(err, net.ErrClosed) {
			slog.Error(err.Error(), "msg", "listener closed")
			return
		}
		slog.Info("client joined from " + conn.RemoteAddr().String())
		clientWaitGroup.Add(1)
		go server.handleClient(conn, clientWaitGroup)

	}

}

func (server *Server) Run() {

	clientWaitGroup := &sync.WaitGroup{}
	listenerWaitGroup := &sync.WaitGroup{}

	listenerWaitGroup.Add(1)
	go server.listen(listenerWaitGroup, clientWaitGroup)

	slog.Info("waiting for shutdown...")
	listenerWaitGroup.Wait()
	slog.Info("waiting for clients to exit...")
	clientWaitGroup.Wait()
}

func (server *Server) Shutdown() {

	slog.Info("shutdown initiated...")
	server.shutdownOnce.Do(func() {

		server.listener.Close()
		if err := server.dataStructureLayer.Close(); err != nil {
			slog.Error(err.Error(), "msg", "error while closing data structure layer")
		}
		close(server.shutdown)

	})

}
