// Package gradesdk is a Go client for the gradebook service.
//
// Unauthenticated calls live on Client; everything else goes through a
// Session obtained from Client.Login:
//
//	client := gradesdk.NewClient("http://localhost:8080")
//
//	sess, err := client.Login(ctx, "profe@example.com", "secret123", "")
//	if gradesdk.IsMFARequired(err) {
//		sess, err = client.Login(ctx, "profe@example.com", "secret123", code)
//	}
//	if err != nil {
//		return err
//	}
//
//	grade, err := sess.CreateGrade(ctx, gradesdk.GradeRequest{
//		EstudianteID: 1,
//		Asignatura:   "Matemáticas",
//		Calificacion: gradesdk.Score(4.5),
//		Periodo:      "2025-1",
//	})
//
// Sessions refresh their token shortly before it expires. Logout revokes
// the current token on the server.
//
// The request and response types double as the wire format used by the
// server's handlers. Errors returned for non-2xx responses are *APIError.
package gradesdk
