package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes вешает обработчики на роутер. auth применяется ко всему, кроме /health.
func Routes(r chi.Router, tasks *TaskHandler, reminders *ReminderHandler, auth func(http.Handler) http.Handler) {
	r.Get("/health", tasks.HealthCheck)

	r.Group(func(r chi.Router) {
		r.Use(auth)

		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", tasks.ListTasks)               // GET /tasks
			r.Post("/", tasks.PostTask)               // POST /tasks
			r.Get("/statuses", tasks.Statuses)        // GET /tasks/statuses
			r.Get("/overdue", reminders.OverdueTasks) // GET /tasks/overdue

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", tasks.GetTaskByID)      // GET /tasks/{id}
				r.Put("/", tasks.UpdateTaskByID)   // PUT /tasks/{id}
				r.Post("/status", tasks.SetStatus) // POST /tasks/{id}/status
			})
		})

		r.Route("/reminders", func(r chi.Router) {
			r.Get("/", reminders.ListReminders)        // GET /reminders
			r.Post("/", reminders.PostReminder)        // POST /reminders
			r.Post("/{id}/dismiss", reminders.Dismiss) // POST /reminders/{id}/dismiss
		})
	})
}
